package kb

import "strings"

const (
	productTitle     = "【居家保養處方】"
	lifestyleTitle   = "【日常改善指引】"
	treatmentTitle   = "【專業護理規劃】"
	treatmentContent = "建議回店進行高階護理，加速改善進度。"
)

type productBundle struct {
	when   DiagnosisID
	ids    []string
	reason string
}

// Home-care bundles, first match wins: sensitive > thinning > clogged.
var productPriority = []productBundle{
	{when: DiagnosisSensitive, ids: []string{"V_CALM_SHAMPOO", "V_CALM_ESSENCE"}, reason: "首要任務為修復受損屏障，降低頭皮發炎與過敏反應。"},
	{when: DiagnosisThinning, ids: []string{"V_REVITALIZE_SHAMPOO", "V_REVITALIZE_ESSENCE"}, reason: "需要注入生長因子並活絡微循環，逆轉毛囊萎縮。"},
	{when: DiagnosisClogged, ids: []string{"V_PURIFY_DEW", "V_AIRY_SHAMPOO"}, reason: "建議進行週期性深層清潔，移除毛孔栓塞，預防毛囊炎。"},
}

var defaultProductBundle = productBundle{
	ids:    []string{"V_AIRY_SHAMPOO", "V_GOLD_COND"},
	reason: "目前狀況良好，建議維持基礎清潔與適度滋養。",
}

type lifestyleRule struct {
	when DiagnosisID
	key  string
}

// Lifestyle tips, first match wins: sensitive > clogged > thinning.
var lifestylePriority = []lifestyleRule{
	{when: DiagnosisSensitive, key: LifestyleSensitive},
	{when: DiagnosisClogged, key: LifestyleOily},
	{when: DiagnosisThinning, key: LifestyleThinning},
}

type treatmentRule struct {
	when   DiagnosisID
	course string
}

// Treatment courses are checked clogged -> thinning -> sensitive and each
// match overwrites the previous one, so the last match decides.
var treatmentChain = []treatmentRule{
	{when: DiagnosisClogged, course: "COURSE_O2_PURIFY"},
	{when: DiagnosisThinning, course: "COURSE_LASER_GROW"},
	{when: DiagnosisSensitive, course: "COURSE_CALM_SPA"},
}

const defaultCourse = "COURSE_DETOX_SCALP"

// Composer maps active diagnoses to one recommendation per category.
type Composer struct {
	catalogs *Catalogs
}

// NewComposer returns a Composer reading lifestyle tips from catalogs.
// A nil catalogs value selects DefaultCatalogs.
func NewComposer(catalogs *Catalogs) *Composer {
	if catalogs == nil {
		catalogs = DefaultCatalogs()
	}
	return &Composer{catalogs: catalogs}
}

// Compose always returns exactly one product, lifestyle and treatment recommendation.
func (c *Composer) Compose(diagnoses []Diagnosis) RecommendationSet {
	return RecommendationSet{
		Product:   composeProduct(diagnoses),
		Lifestyle: c.composeLifestyle(diagnoses),
		Treatment: composeTreatment(diagnoses),
	}
}

func composeProduct(diagnoses []Diagnosis) Recommendation {
	bundle := defaultProductBundle
	for _, candidate := range productPriority {
		if HasDiagnosis(diagnoses, candidate.when) {
			bundle = candidate
			break
		}
	}
	return Recommendation{
		Type:    RecommendationProduct,
		Title:   productTitle,
		Content: bundle.reason,
		IDs:     append([]string(nil), bundle.ids...),
	}
}

func (c *Composer) composeLifestyle(diagnoses []Diagnosis) Recommendation {
	key := LifestyleGeneral
	for _, candidate := range lifestylePriority {
		if HasDiagnosis(diagnoses, candidate.when) {
			key = candidate.key
			break
		}
	}
	return Recommendation{
		Type:    RecommendationLifestyle,
		Title:   lifestyleTitle,
		Content: strings.Join(c.catalogs.Tips(key), "\n"),
	}
}

func composeTreatment(diagnoses []Diagnosis) Recommendation {
	var courses []string
	for _, step := range treatmentChain {
		if HasDiagnosis(diagnoses, step.when) {
			courses = []string{step.course}
		}
	}
	if len(courses) == 0 {
		courses = []string{defaultCourse}
	}
	return Recommendation{
		Type:    RecommendationTreatment,
		Title:   treatmentTitle,
		Content: treatmentContent,
		IDs:     courses,
	}
}

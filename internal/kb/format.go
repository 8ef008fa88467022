package kb

import "strings"

const formatHeading = "【專家核心診斷與處方內容】\n\n"

// Format renders recommendations as the text block handed to the report
// generator. IDs missing from the catalogs are skipped. Output is byte-stable
// for identical input.
func Format(recs []Recommendation, catalogs *Catalogs) string {
	if catalogs == nil {
		catalogs = DefaultCatalogs()
	}
	var b strings.Builder
	b.WriteString(formatHeading)
	for _, r := range recs {
		b.WriteString("### ")
		b.WriteString(r.Title)
		b.WriteString("\n")
		switch r.Type {
		case RecommendationLifestyle:
			b.WriteString("- 改善策略: ")
			b.WriteString(r.Content)
			b.WriteString("\n\n")
		case RecommendationProduct:
			b.WriteString("- 保養邏輯: ")
			b.WriteString(r.Content)
			b.WriteString("\n- 推薦商品:\n")
			for _, id := range r.IDs {
				p, ok := catalogs.Product(id)
				if !ok {
					continue
				}
				b.WriteString("  * **" + p.Name + "**: " + p.Efficacy + " (用法：" + p.Usage + ")\n")
			}
			b.WriteString("\n")
		case RecommendationTreatment:
			b.WriteString("- 護理策略: ")
			b.WriteString(r.Content)
			b.WriteString("\n- 建議課程:\n")
			for _, id := range r.IDs {
				course, ok := catalogs.Course(id)
				if !ok {
					continue
				}
				b.WriteString("  * **" + course.Name + "**: " + course.Description + " (時長：" + course.Duration + ")\n")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

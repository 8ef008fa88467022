package assessments

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"scalpcare-backend/internal/llm"
	"scalpcare-backend/internal/shared/storage/object"
	"scalpcare-backend/internal/shared/telemetry"
	"scalpcare-backend/internal/shared/util"
)

// Generator labels for the two scope images; custom images are not sent.
var imageLabels = map[string]string{
	SlotWhiteLight:     "白光影像 (White Light):",
	SlotPolarizedLight: "偏光影像 (Polarized Light):",
}

type decodedImage struct {
	slot  string
	phase string
	mime  string
	data  []byte
}

func decodeImages(phase string, set ImageSet) ([]decodedImage, error) {
	var out []decodedImage
	for _, slot := range set.slots() {
		raw := strings.TrimSpace(slot[1])
		if raw == "" {
			continue
		}
		data, mime, err := util.DecodeDataURL(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s image (%s): %v", ErrInvalidInput, slot[0], phase, err)
		}
		if !strings.HasPrefix(mime, "image/") {
			return nil, fmt.Errorf("%w: %s image (%s) has type %s", ErrInvalidInput, slot[0], phase, mime)
		}
		out = append(out, decodedImage{slot: slot[0], phase: phase, mime: mime, data: data})
	}
	return out, nil
}

func imageKey(phone, assessmentID string, img decodedImage) string {
	return fmt.Sprintf("customers/%s/assessments/%s/%s_%s%s",
		util.HashKey(phone)[:16], assessmentID, img.slot, img.phase, util.ExtensionForMIME(img.mime))
}

// saveImages stores each image. A failed upload is logged and skipped so the
// assessment itself is never lost to a storage hiccup.
func saveImages(ctx context.Context, store object.Store, phone, assessmentID string, images []decodedImage) []StoredImage {
	out := []StoredImage{}
	if store == nil {
		return out
	}
	for _, img := range images {
		key := imageKey(phone, assessmentID, img)
		size, err := store.Put(ctx, key, img.mime, bytes.NewReader(img.data))
		if err != nil {
			telemetry.Warn("assessment.image_upload_failed", map[string]any{
				"request_id":    requestIDFromContext(ctx),
				"assessment_id": assessmentID,
				"slot":          img.slot,
				"phase":         img.phase,
				"error":         sanitizeError(err),
			})
			continue
		}
		out = append(out, StoredImage{
			Slot:      img.slot,
			Phase:     img.phase,
			Key:       key,
			MIMEType:  img.mime,
			SizeBytes: size,
		})
	}
	return out
}

// loadGeneratorImages reads the "before" scope images back for the report
// generator. Unreadable images are skipped.
func loadGeneratorImages(ctx context.Context, store object.Store, a Assessment) []llm.ImagePart {
	var parts []llm.ImagePart
	if store == nil {
		return parts
	}
	for _, slot := range []string{SlotWhiteLight, SlotPolarizedLight} {
		for _, img := range a.Images {
			if img.Slot != slot || img.Phase != PhaseBefore {
				continue
			}
			data, err := readObject(ctx, store, img.Key)
			if err != nil {
				telemetry.Warn("assessment.image_load_failed", map[string]any{
					"request_id":    requestIDFromContext(ctx),
					"assessment_id": a.ID,
					"slot":          img.Slot,
					"error":         sanitizeError(err),
				})
				continue
			}
			parts = append(parts, llm.ImagePart{Label: imageLabels[slot], MIMEType: img.MIMEType, Data: data})
		}
	}
	return parts
}

func readObject(ctx context.Context, store object.Store, key string) ([]byte, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

package answer

import "github.com/thechalk/chalkbot/internal/models"

// FuseContext merges the two retrieval passes into one context list:
// personal results first, then global, each keeping retriever order.
// Duplicate chunk texts keep their first occurrence, so a chunk present in
// both corpora counts once and stays in the personal slot.
func FuseContext(user, global []models.RetrievalResult) []models.RetrievalResult {
	seen := make(map[string]struct{}, len(user)+len(global))
	var fused []models.RetrievalResult
	for _, res := range user {
		if _, ok := seen[res.Text]; ok {
			continue
		}
		seen[res.Text] = struct{}{}
		fused = append(fused, res)
	}
	for _, res := range global {
		if _, ok := seen[res.Text]; ok {
			continue
		}
		seen[res.Text] = struct{}{}
		fused = append(fused, res)
	}
	return fused
}

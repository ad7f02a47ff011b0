package fund

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"FactionVault/internal/model"

	"lukechampine.com/blake3"
)

// Digest hashes the canonical JSON of the game state and positions (sorted
// by owner). Replicas that applied the same transactions agree on it.
func Digest(gs *model.GameState, positions []*model.UserPosition) string {
	sorted := append([]*model.UserPosition(nil), positions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Owner < sorted[j].Owner })

	data, err := json.Marshal(struct {
		State     *model.GameState      `json:"state"`
		Positions []*model.UserPosition `json:"positions"`
	}{gs, sorted})
	if err != nil {
		// Plain structs of integers and strings always marshal.
		panic(err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

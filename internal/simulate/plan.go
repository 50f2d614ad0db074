package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

// submission is one planned register request.
type submission struct {
	RequestID string
	Team      int // index into the created teams
	Material  Material
	Resend    bool // send twice with the same request id
}

// plan picks a team and a material for every request. Every n-th request
// is marked for resending when dupEvery > 0.
func plan(n, teams, dupEvery int, materials []Material, seed uint64) []submission {
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]submission, n)
	for i := range out {
		out[i] = submission{
			RequestID: uuid.NewString(),
			Team:      rng.IntN(teams),
			Material:  materials[rng.IntN(len(materials))],
			Resend:    dupEvery > 0 && (i+1)%dupEvery == 0,
		}
	}
	return out
}

// teamName returns the display name of the i-th simulated team.
func teamName(i int) string {
	return fmt.Sprintf("Turma %d", i+1)
}

package loadgen

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/tasting/internal/domain/model"
)

var (
	clarities    = []model.Clarity{model.ClarityClear, model.ClaritySlight, model.ClarityCloudy}
	temperatures = []model.Temperature{model.TemperatureChilled, model.TemperatureRoom, model.TemperatureWarm}
)

// plannedReport is one submission the run will make.
type plannedReport struct {
	item        int
	participant string
	input       model.ReportInput
	idemKey     string
	retry       bool
}

// plan is the deterministic part of a run.
type plan struct {
	runID        string
	items        []model.ItemInput
	participants []string
	reports      []plannedReport
}

// newPlan builds the items, participants and reports for a run. The same
// seed always gives the same scores; only the run id differs.
func newPlan(cfg Config) plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))
	runID := uuid.NewString()[:8]
	categories := model.KnownCategories()

	p := plan{runID: runID}
	for i := range cfg.Items {
		p.items = append(p.items, model.ItemInput{
			Name:     fmt.Sprintf("load-%s-酒%03d", runID, i),
			Category: categories[rng.IntN(len(categories))],
			Origin:   "loadgen",
		})
	}
	for i := range cfg.Participants {
		p.participants = append(p.participants, fmt.Sprintf("参加者-%s-%03d", runID, i))
	}
	for range cfg.Reports {
		p.reports = append(p.reports, plannedReport{
			item:        rng.IntN(cfg.Items),
			participant: p.participants[rng.IntN(len(p.participants))],
			input:       randomInput(rng),
			idemKey:     uuid.NewString(),
			retry:       rng.Float64() < cfg.RetryRatio,
		})
	}
	return p
}

// randomInput draws a report whose score clusters around the middle of the
// scale with occasional outliers.
func randomInput(rng *rand.Rand) model.ReportInput {
	score := int(rng.NormFloat64()*12 + 75)
	if rng.IntN(20) == 0 {
		score = rng.IntN(101)
	}
	return model.ReportInput{
		Attributes: model.Attributes{
			Sweetness:   1 + rng.IntN(5),
			Aroma:       1 + rng.IntN(5),
			Body:        1 + rng.IntN(5),
			Acidity:     1 + rng.IntN(5),
			Finish:      1 + rng.IntN(3),
			Clarity:     clarities[rng.IntN(len(clarities))],
			Temperature: temperatures[rng.IntN(len(temperatures))],
		},
		Score: model.ClampScore(score),
		Notes: "loadgen",
	}
}

package strategy

import (
	"errors"
	"testing"

	"signal-machine/models"
)

func TestProfileFor(t *testing.T) {
	for _, id := range IDs() {
		p, err := ProfileFor(id)
		if err != nil {
			t.Errorf("ProfileFor(%q) error = %v", id, err)
		}
		if p.ID != id {
			t.Errorf("ProfileFor(%q).ID = %q", id, p.ID)
		}
	}

	_, err := ProfileFor("does_not_exist")
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("ProfileFor(unknown) error = %v, want ErrUnknownStrategy", err)
	}
}

func TestShippedProfiles(t *testing.T) {
	ids := IDs()
	if len(ids) != 5 {
		t.Fatalf("shipped strategies = %d, want 5: %v", len(ids), ids)
	}

	for _, id := range ids {
		p, _ := ProfileFor(id)
		risk := p.Risk
		if risk.StopLossPct <= 0 || risk.MaxStopPct <= 0 || risk.TargetMultiplier <= 0 || risk.MaxPositionPct <= 0 {
			t.Errorf("profile %s has non-positive risk constants: %+v", id, risk)
		}
		if risk.StopLossPct > risk.MaxStopPct {
			t.Errorf("profile %s default stop %.3f exceeds max stop %.3f", id, risk.StopLossPct, risk.MaxStopPct)
		}
		if risk.MaxPositionPct > 1 {
			t.Errorf("profile %s max position %.2f exceeds 100%% of capital", id, risk.MaxPositionPct)
		}
		for name, w := range p.IndicatorWeights {
			if w < 0 {
				t.Errorf("profile %s has negative weight for %s", id, name)
			}
		}
	}
}

func TestDefaultWeightIsOne(t *testing.T) {
	p, _ := ProfileFor("trend_following")

	if w := p.IndicatorWeight("adx"); w != 1.6 {
		t.Errorf("IndicatorWeight(adx) = %v, want 1.6", w)
	}
	if w := p.IndicatorWeight("bollinger"); w != 1.0 {
		t.Errorf("unlisted indicator weight = %v, want default 1.0", w)
	}
	if w := p.CategoryWeight(models.CategoryTrend); w != 1.5 {
		t.Errorf("CategoryWeight(trend) = %v, want 1.5", w)
	}

	baseline := Baseline()
	if baseline.ID != BaselineID {
		t.Errorf("Baseline().ID = %q, want %q", baseline.ID, BaselineID)
	}
	if w := baseline.IndicatorWeight("rsi"); w != 1.0 {
		t.Errorf("baseline indicator weight = %v, want 1.0", w)
	}
	if w := baseline.CategoryWeight(models.CategoryVolume); w != 1.0 {
		t.Errorf("baseline category weight = %v, want 1.0", w)
	}
}

package agent

import (
	"testing"

	"github.com/nstehr/ego/model"
)

func unit(tag uint64, t model.UnitType) model.Unit {
	return model.Unit{Tag: tag, Type: t, BuildProgress: 1}
}

func army(n int, from uint64) []model.Unit {
	var out []model.Unit
	for i := 0; i < n; i++ {
		out = append(out, unit(from+uint64(i), model.Marine))
	}
	return out
}

func TestDetectEvents(t *testing.T) {
	base := func() model.GameState {
		units := []model.Unit{unit(1, model.CommandCenter), unit(2, model.Barracks), unit(3, model.SupplyDepot), unit(10, model.SCV)}
		return model.GameState{Units: append(units, army(8, 100)...)}
	}

	tests := []struct {
		name   string
		mutate func(gs *model.GameState)
		want   []EventKind
	}{
		{"nothing", func(*model.GameState) {}, nil},
		{"barracks lost", func(gs *model.GameState) { gs.Units = append(gs.Units[:1], gs.Units[2:]...) }, []EventKind{EventCriticalStructureLost}},
		{"depot lost is not critical", func(gs *model.GameState) { gs.Units = append(gs.Units[:2], gs.Units[3:]...) }, nil},
		{"army devastated", func(gs *model.GameState) { gs.Units = gs.Units[:7] }, []EventKind{EventArmyDevastated}},
		{"half the army is not devastated", func(gs *model.GameState) { gs.Units = gs.Units[:8] }, nil},
		{"opening complete", func(gs *model.GameState) { gs.OpeningDone = true }, []EventKind{EventOpeningComplete}},
		{"workers lost", func(gs *model.GameState) { gs.Units = append(gs.Units[:3], gs.Units[4:]...) }, []EventKind{EventEconomyCrisis}},
		{"first contact", func(gs *model.GameState) { gs.Enemies = []model.Unit{unit(900, model.Zergling)} }, []EventKind{EventFirstContact}},
		{"enemy base", func(gs *model.GameState) { gs.Enemies = []model.Unit{unit(900, model.Hatchery)} },
			[]EventKind{EventEnemyBaseDiscovered, EventFirstContact}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prevGS := base()
			prev := takeSnapshot(&prevGS)
			curGS := base()
			tt.mutate(&curGS)
			events := detectEvents(5, &prev, takeSnapshot(&curGS))

			if len(events) != len(tt.want) {
				t.Fatalf("events = %+v, want %v", events, tt.want)
			}
			for i, ev := range events {
				if ev.Kind != tt.want[i] {
					t.Errorf("event %d = %s, want %s", i, ev.Kind, tt.want[i])
				}
				if ev.Iteration != 5 {
					t.Errorf("iteration = %d", ev.Iteration)
				}
			}
		})
	}
}

func TestDetectEventsFirstTick(t *testing.T) {
	gs := model.GameState{Enemies: []model.Unit{unit(900, model.Zergling)}}
	if events := detectEvents(1, nil, takeSnapshot(&gs)); events != nil {
		t.Errorf("first tick produced %+v", events)
	}
}

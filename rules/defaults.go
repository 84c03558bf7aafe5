package rules

// DefaultRules is the stock rule set: a reaper probe of the enemy natural
// and a periodic reaper patrol through the map center. Both only use a
// reaper nobody else holds.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:         "harass-natural-probe",
			Domain:       "HARASS",
			Score:        8,
			ConditionSrc: `Time >= 180 && !Threatened && HasEnemyNatural() && Opening() != "AGGRESSIVE" && FreeUnits("REAPER") > 0`,
			Task:         "reaper_scout",
			Params:       map[string]string{"objective": "CONFIRM_NATURAL"},
			Interval:     90,
			Risk:         2,
		},
		{
			Name:         "map-reaper-patrol",
			Domain:       "MAP",
			Score:        5,
			ConditionSrc: `Time >= 240 && Urgency < 30 && FreeUnits("REAPER") > 0`,
			Task:         "reaper_scout",
			Params:       map[string]string{"objective": "MAP_CENTER"},
			Interval:     60,
			Risk:         1,
		},
	}
}

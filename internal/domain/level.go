package domain

// Tier labels, exactly as exposed over the API
const (
	LevelBronze  = "bronze"
	LevelSilver  = "silver"
	LevelGold    = "gold"
	LevelDiamond = "diamond"
	LevelLegend  = "Legend"
)

// tier pairs a minimum referral count with its label
type tier struct {
	min   int    // Inclusive lower bound
	label string // Tier label
}

// tiers is ordered from the highest threshold to the lowest
var tiers = []tier{
	{min: 100, label: LevelLegend},
	{min: 50, label: LevelDiamond},
	{min: 25, label: LevelGold},
	{min: 10, label: LevelSilver},
}

// LevelFor returns the tier label for a referral count
func LevelFor(referralCount int) string {
	for _, t := range tiers {
		if referralCount >= t.min {
			return t.label
		}
	}
	return LevelBronze
}

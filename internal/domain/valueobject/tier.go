package valueobject

// Tier - уровень репутации установщика.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	}
	return false
}

// TierThresholds - нижние границы уровней по очкам. Bronze начинается с минус бесконечности.
type TierThresholds struct {
	Silver   int `json:"silver"`
	Gold     int `json:"gold"`
	Platinum int `json:"platinum"`
}

// TierFor возвращает старший уровень, порог которого не превышает points.
func (th TierThresholds) TierFor(points int) Tier {
	switch {
	case points >= th.Platinum:
		return TierPlatinum
	case points >= th.Gold:
		return TierGold
	case points >= th.Silver:
		return TierSilver
	default:
		return TierBronze
	}
}

// Valid проверяет, что пороги строго возрастают.
func (th TierThresholds) Valid() bool {
	return th.Silver < th.Gold && th.Gold < th.Platinum
}

package models

// Analysis — выход аналитического движка по одной серии цен.
type Analysis struct {
	Market       MarketType
	CurrentPrice float64
	SMA10        float64
	SMA20        float64
	Direction    Direction
	Confidence   float64 // [0,1]
}

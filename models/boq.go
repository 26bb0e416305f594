package models

// BoQItem is a single line in a bill of quantities.
type BoQItem struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// BoQ is the bill of quantities extracted from one drawing file.
type BoQ struct {
	File  string    `json:"file"`
	Items []BoQItem `json:"items"`
}

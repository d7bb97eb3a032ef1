package models

// ImportRow is one spreadsheet row after header normalization. All fields
// are kept as strings; validation and parsing happen during grouping so a
// bad cell produces a row-scoped error instead of aborting the batch.
type ImportRow struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Year         string `json:"year"`
	Season       string `json:"season"`
	CategoryCode string `json:"category_code"`
	ColorCode    string `json:"color_code"`
	ColorName    string `json:"color_name"`
	Size         string `json:"size"`
	TagPrice     string `json:"tag_price"`
	SellingPrice string `json:"selling_price"`
	CostPrice    string `json:"cost_price"`
	Description  string `json:"description"`
}

type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportCandidate is one grouped product-to-be with everything needed to
// call CreateProduct, plus the validation outcome. Candidates with errors
// stay in the preview so callers can see exactly what failed.
type ImportCandidate struct {
	Rows     []int                `json:"rows"`
	Request  CreateProductRequest `json:"request"`
	Errors   []RowError           `json:"errors,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

func (c *ImportCandidate) HasErrors() bool {
	return len(c.Errors) > 0
}

type ImportPreview struct {
	Candidates []*ImportCandidate `json:"candidates"`
	TotalRows  int                `json:"total_rows"`
}

type ImportResult struct {
	Success int        `json:"success"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors,omitempty"`
}

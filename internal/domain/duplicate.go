package domain

// DuplicatePair is one kept/deleted decision of the duplicate sweep.
type DuplicatePair struct {
	KeptID       int64  `json:"kept_id"`
	KeptTitle    string `json:"kept_title"`
	DeletedID    int64  `json:"deleted_id"`
	DeletedTitle string `json:"deleted_title"`
	Reason       string `json:"reason"`
}

type DuplicateReport struct {
	Pairs      []DuplicatePair `json:"pairs"`
	Scanned    int             `json:"scanned"`
	Duplicates int             `json:"duplicates"`
	Deleted    int64           `json:"deleted"`
	DryRun     bool            `json:"dry_run"`
}

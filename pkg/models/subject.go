package models

// Subject groups study plans and flashcards.
type Subject struct {
	ID          int64  `json:"id" db:"id"`
	OwnerID     int64  `json:"owner_id" db:"owner_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`
	UECode      string `json:"ue_code,omitempty" db:"ue_code"`
}

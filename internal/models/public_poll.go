package models

import (
	"math"
	"time"
)

// PublicPoll is the read-only, percentage-annotated view sent to clients.
type PublicPoll struct {
	ID         string         `json:"id"`
	Question   string         `json:"question"`
	Options    []PublicOption `json:"options"`
	TotalVotes int            `json:"totalVotes"`
	CreatedAt  time.Time      `json:"createdAt"`
	ExpiresAt  *time.Time     `json:"expiresAt"`
	IsExpired  bool           `json:"isExpired"`
	IsDeleted  bool           `json:"isDeleted"`
	DeletedAt  *time.Time     `json:"deletedAt"`
}

type PublicOption struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// ToPublic projects the aggregate at the given instant. It has no side
// effects and never exposes the ledger.
func (p *Poll) ToPublic(now time.Time) *PublicPoll {
	total := p.TotalVotes()

	options := make([]PublicOption, 0, len(p.Options))
	for _, option := range p.Options {
		options = append(options, PublicOption{
			ID:         option.ID,
			Text:       option.Text,
			Votes:      option.Votes,
			Percentage: Percentage(option.Votes, total),
		})
	}

	return &PublicPoll{
		ID:         p.ID,
		Question:   p.Question,
		Options:    options,
		TotalVotes: total,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
		IsExpired:  p.IsExpired(now),
		IsDeleted:  p.IsDeleted,
		DeletedAt:  p.DeletedAt,
	}
}

// Percentage returns votes/total*100 rounded to two decimals, 0 for an
// empty poll.
func Percentage(votes, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(total)*100*100) / 100
}

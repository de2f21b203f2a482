package models

import (
	"time"
)

// Poll is the full persisted state of one poll: question, options with
// counters and the voter ledger.
type Poll struct {
	ID              string     `bson:"id" json:"id"`
	Question        string     `bson:"question" json:"question"`
	Options         []Option   `bson:"options" json:"options"`
	CreatedAt       time.Time  `bson:"createdAt" json:"createdAt"`
	ExpiresAt       *time.Time `bson:"expiresAt" json:"expiresAt"`
	IsDeleted       bool       `bson:"isDeleted" json:"isDeleted"`
	DeletedAt       *time.Time `bson:"deletedAt" json:"deletedAt"`
	CreatorDeviceID string     `bson:"creatorDeviceId" json:"creatorDeviceId"`

	// Voters is the authoritative ledger, at most one entry per device.
	Voters []Voter `bson:"voters" json:"voters"`

	// Unique projections of Voters; recomputed, never trusted on their own.
	VoterIPs     []string `bson:"voterIps" json:"voterIps"`
	VoterDevices []string `bson:"voterDevices" json:"voterDevices"`
}

type Option struct {
	ID    string `bson:"id" json:"id"`
	Text  string `bson:"text" json:"text"`
	Votes int    `bson:"votes" json:"votes"`
}

type Voter struct {
	DeviceID string    `bson:"deviceId" json:"deviceId"`
	IP       string    `bson:"ip" json:"ip"`
	OptionID string    `bson:"optionId" json:"optionId"`
	VotedAt  time.Time `bson:"votedAt" json:"votedAt"`
}

// TotalVotes sums the option counters.
func (p *Poll) TotalVotes() int {
	total := 0
	for _, option := range p.Options {
		total += option.Votes
	}
	return total
}

// IsExpired reports whether voting is closed at now.
func (p *Poll) IsExpired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// FindOption returns a pointer into p.Options, or nil.
func (p *Poll) FindOption(optionID string) *Option {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// FindVoterByDevice returns the ledger index for deviceID, or -1.
func (p *Poll) FindVoterByDevice(deviceID string) int {
	for i := range p.Voters {
		if p.Voters[i].DeviceID == deviceID {
			return i
		}
	}
	return -1
}

// IPHeldByOtherDevice reports whether any ledger entry for ip belongs to a
// device other than deviceID.
func (p *Poll) IPHeldByOtherDevice(ip, deviceID string) bool {
	for _, voter := range p.Voters {
		if voter.IP == ip && voter.DeviceID != deviceID {
			return true
		}
	}
	return false
}

// SyncVoterLists recomputes VoterDevices and VoterIPs from the ledger,
// keeping first-seen order.
func (p *Poll) SyncVoterLists() {
	devices := make([]string, 0, len(p.Voters))
	ips := make([]string, 0, len(p.Voters))
	seenDevices := make(map[string]bool, len(p.Voters))
	seenIPs := make(map[string]bool, len(p.Voters))

	for _, voter := range p.Voters {
		if voter.DeviceID != "" && !seenDevices[voter.DeviceID] {
			seenDevices[voter.DeviceID] = true
			devices = append(devices, voter.DeviceID)
		}
		if voter.IP != "" && !seenIPs[voter.IP] {
			seenIPs[voter.IP] = true
			ips = append(ips, voter.IP)
		}
	}

	p.VoterDevices = devices
	p.VoterIPs = ips
}

// Clone returns a deep copy so callers can mutate without touching the
// stored original.
func (p *Poll) Clone() *Poll {
	if p == nil {
		return nil
	}

	clone := *p
	clone.Options = append([]Option(nil), p.Options...)
	clone.Voters = append([]Voter(nil), p.Voters...)
	clone.VoterIPs = append([]string(nil), p.VoterIPs...)
	clone.VoterDevices = append([]string(nil), p.VoterDevices...)
	if p.ExpiresAt != nil {
		expiresAt := *p.ExpiresAt
		clone.ExpiresAt = &expiresAt
	}
	if p.DeletedAt != nil {
		deletedAt := *p.DeletedAt
		clone.DeletedAt = &deletedAt
	}
	return &clone
}

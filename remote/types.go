package remote

import (
	"bytes"
	"encoding/json"

	"arcadesync/core"
)

// flexString decodes a JSON value that may arrive as a string or a number.
// The leaderboard backend is not consistent about score typing.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// scoreEntry is the raw shape of one personal leaderboard item. Every field
// except game_id may be absent; absent fields become typed zero values
// rather than being silently coerced downstream.
type scoreEntry struct {
	GameID    *int64      `json:"game_id"`
	Name      *string     `json:"name"`
	Score     *flexString `json:"score"`
	Rank      *int64      `json:"rank"`
	Signature *string     `json:"signature"`
	UserName  *string     `json:"user_name"`
	CreatedAt *string     `json:"created_at"`
	Hardware  *string     `json:"hardware"`
	Series    *string     `json:"series"`
	Snapshot  *string     `json:"snapshot"`
}

// record converts a validated entry into the domain type. The caller has
// already checked that GameID is present.
func (e scoreEntry) record() core.ScoreRecord {
	r := core.ScoreRecord{
		GameID: *e.GameID,
		Rank:   e.Rank,
	}
	if e.Name != nil {
		r.GameName = *e.Name
	}
	if e.Score != nil {
		r.ScoreValue = string(*e.Score)
	}
	if e.Signature != nil {
		r.Signature = *e.Signature
	}
	if e.UserName != nil {
		r.UserName = *e.UserName
	}
	if e.CreatedAt != nil {
		r.CreatedAt = *e.CreatedAt
	}
	if e.Hardware != nil {
		r.Hardware = *e.Hardware
	}
	if e.Series != nil {
		r.Series = *e.Series
	}
	if e.Snapshot != nil {
		r.Snapshot = *e.Snapshot
	}
	return r
}

// signInResponse is the relevant slice of the provider's login payload.
type signInResponse struct {
	Account struct {
		Token string `json:"token"`
		ID    int64  `json:"id"`
	} `json:"account"`
}

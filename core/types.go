package core

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the wire and storage format for fetch timestamps.
// All values are UTC; the layout matches what the leaderboard backend emits.
const TimeLayout = "2006-01-02 15:04:05"

// ScoreRecord is one personal leaderboard row, keyed by (account, game).
// A fresh fetch fully replaces the prior row for the same key; there is no
// field-level merge. Optional source fields stay empty when absent.
type ScoreRecord struct {
	AccountID  int64  `json:"account_id" db:"account_id"`
	GameID     int64  `json:"game_id" db:"game_id"`
	GameName   string `json:"game_name" db:"game_name"`
	ScoreValue string `json:"score_value" db:"score_value"`
	Rank       *int64 `json:"rank" db:"rank"`
	Signature  string `json:"signature" db:"signature"`
	UserName   string `json:"user_name" db:"user_name"`
	CreatedAt  string `json:"created_at" db:"created_at"`
	Hardware   string `json:"hardware" db:"hardware"`
	Series     string `json:"series" db:"series"`
	Snapshot   string `json:"snapshot" db:"snapshot"`
}

// VisibleScore is the overlay read result: a stored record joined with the
// account's visibility preference. Absence of a flag means visible.
type VisibleScore struct {
	Record   ScoreRecord `json:"record"`
	IsHidden bool        `json:"is_hidden"`
}

// Session is the result of a successful sign-in against the remote service.
// Token already carries the "Bearer " prefix.
type Session struct {
	Token     string
	AccountID int64
}

// ParseUTCTime parses a stored fetch timestamp. The second return is false
// for empty or malformed input; callers treat that as "never fetched" so a
// bad row fails open toward refetching.
func ParseUTCTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatUTCTime renders t in the storage layout, normalized to UTC.
func FormatUTCTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatScore re-groups a numeric score string with comma separators
// ("1234567" -> "1,234,567"). Existing separators are stripped first.
// Values that do not parse as numbers pass through verbatim.
func FormatScore(raw string) string {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return raw
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return raw
	}
	n := int64(f)
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// RankValue returns the record's rank and whether it is set.
func (r ScoreRecord) RankValue() (int64, bool) {
	if r.Rank == nil {
		return 0, false
	}
	return *r.Rank, true
}

// SortVisibleScores orders an overlay in place: rank ascending, records
// without a rank after ranked ones, game id as the tiebreak so results are
// deterministic.
func SortVisibleScores(scores []VisibleScore) {
	sort.Slice(scores, func(i, j int) bool {
		ri, iOK := scores[i].Record.RankValue()
		rj, jOK := scores[j].Record.RankValue()
		if iOK != jOK {
			return iOK
		}
		if iOK && ri != rj {
			return ri < rj
		}
		return scores[i].Record.GameID < scores[j].Record.GameID
	})
}

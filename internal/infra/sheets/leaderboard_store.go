package sheets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"case-reasons-training/internal/domain"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// DefaultRange covers the Name, Country, Score and Asterisks columns of the
// first sheet.
const DefaultRange = "Sheet1!A:D"

// LeaderboardStore keeps the leaderboard in a Google Sheet. Each completion
// is one values.append call, so the server adds the row and existing rows
// are never read back and rewritten.
type LeaderboardStore struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	readRange     string
}

// New builds a store on the Sheets API. Credentials come from opts (for
// example option.WithCredentialsFile) or application default credentials.
func New(ctx context.Context, spreadsheetID, readRange string, opts ...option.ClientOption) (*LeaderboardStore, error) {
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if readRange == "" {
		readRange = DefaultRange
	}
	return &LeaderboardStore{svc: svc, spreadsheetID: spreadsheetID, readRange: readRange}, nil
}

func (s *LeaderboardStore) Append(ctx context.Context, entry domain.LeaderboardEntry) error {
	row := &sheetsapi.ValueRange{
		Values: [][]interface{}{{entry.Name, entry.Country, entry.Score, entry.Tier}},
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.readRange, row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append leaderboard row: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) List(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	return decode(resp.Values)
}

func decode(rows [][]interface{}) ([]domain.LeaderboardEntry, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		idx[strings.TrimSpace(fmt.Sprint(name))] = i
	}
	for _, col := range []string{"Name", "Country", "Score", "Asterisks"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("read leaderboard: missing column %q", col)
		}
	}

	cell := func(row []interface{}, col string) string {
		if i := idx[col]; i < len(row) && row[i] != nil {
			return strings.TrimSpace(fmt.Sprint(row[i]))
		}
		return ""
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Name:    cell(row, "Name"),
			Country: cell(row, "Country"),
			Score:   number(cell(row, "Score")),
			Tier:    number(cell(row, "Asterisks")),
		})
	}
	return entries, nil
}

// number reads integers written by hand or by other tools, such as "85.0".
// Anything else ranks as zero.
func number(raw string) int {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

func blank(row []interface{}) bool {
	for _, v := range row {
		if v != nil && strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

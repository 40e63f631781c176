package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonapi"
	"github.com/tidwall/gjson"
)

// SearchRecord is one entry of a catalog search page. Track is set only for
// records of type "tracks".
type SearchRecord struct {
	ID    string
	Type  string
	Track *TidalTrackResource
}

// IsTrack reports whether the record is a track resource
func (r SearchRecord) IsTrack() bool {
	return r.Type == "tracks" && r.Track != nil
}

type pageFetcher func(ctx context.Context, pageURL string) ([]SearchRecord, string, error)

// ISRCCursor iterates catalog search results for one ISRC, in the order the
// catalog returns them. Next fetches a page only once the buffered one is
// exhausted, so a non-empty page costs exactly one request. A cursor holds
// no open resources and can be dropped at any point.
//
//	cur := tidal.SearchByISRC(isrc)
//	for cur.Next(ctx) {
//		rec := cur.Record()
//	}
//	if err := cur.Err(); err != nil { ... }
type ISRCCursor struct {
	fetch    pageFetcher
	isrc     string
	next     string
	page     []SearchRecord
	current  SearchRecord
	pages    int
	maxPages int
	err      error
}

// NewISRCCursor creates a cursor over pre-fetched records, chiefly for tests
// and fakes of the catalog client
func NewISRCCursor(isrc string, records []SearchRecord) *ISRCCursor {
	return &ISRCCursor{isrc: isrc, page: records}
}

// ISRC returns the identifier being searched
func (c *ISRCCursor) ISRC() string {
	return c.isrc
}

// Next advances to the next record, fetching a page when the buffered one
// is exhausted. It returns false at the end of results or on error.
func (c *ISRCCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	for len(c.page) == 0 {
		if c.next == "" || c.fetch == nil {
			return false
		}
		if c.maxPages > 0 && c.pages >= c.maxPages {
			return false
		}
		if err := ctx.Err(); err != nil {
			c.err = err
			return false
		}

		records, next, err := c.fetch(ctx, c.next)
		c.pages++
		if err != nil {
			c.err = err
			return false
		}
		// A repeated link would loop forever
		if next == c.next {
			next = ""
		}
		c.page, c.next = records, next
	}

	c.current, c.page = c.page[0], c.page[1:]
	return true
}

// Record returns the record at the current position
func (c *ISRCCursor) Record() SearchRecord {
	return c.current
}

// Err returns the error that stopped iteration, if any
func (c *ISRCCursor) Err() error {
	return c.err
}

// Pages returns the number of pages fetched so far
func (c *ISRCCursor) Pages() int {
	return c.pages
}

// decodeSearchPage splits a JSON:API document into records. Only track
// resources are decoded into structs; other types are passed through by
// id and type so callers can skip them.
func decodeSearchPage(body []byte) ([]SearchRecord, string, error) {
	if !gjson.ValidBytes(body) {
		return nil, "", fmt.Errorf("invalid JSON:API document")
	}
	doc := gjson.ParseBytes(body)

	data := doc.Get("data").Array()
	records := make([]SearchRecord, 0, len(data))
	for _, node := range data {
		record := SearchRecord{
			ID:   node.Get("id").String(),
			Type: node.Get("type").String(),
		}
		if record.ID == "" {
			continue
		}
		if record.Type == "tracks" {
			var track TidalTrackResource
			payload := `{"data":` + node.Raw + `}`
			if err := jsonapi.UnmarshalPayload(strings.NewReader(payload), &track); err != nil {
				return nil, "", fmt.Errorf("failed to decode track %s: %w", record.ID, err)
			}
			record.Track = &track
		}
		records = append(records, record)
	}

	return records, doc.Get("links.next").String(), nil
}

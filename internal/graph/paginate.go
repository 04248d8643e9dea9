package graph

import (
	"context"
	"log/slog"
)

// MaxRecords is the hard safety cap on the number of records a single
// paginated fetch may accumulate. Hitting the cap is not an error: the fetch
// stops early, logs a warning, and the partial result is returned.
const MaxRecords = 100_000

// page is the wire shape of every paginated Graph listing response.
type page struct {
	Value    []map[string]any `json:"value"`
	NextLink string           `json:"@odata.nextLink"`
}

// FetchAll walks a paginated listing endpoint and returns the concatenated
// record set. The first request uses the caller-supplied target; subsequent
// requests follow the server's next-link verbatim, since it arrives fully
// qualified. Any API or transport failure aborts the fetch with no partial
// result.
func (c *Client) FetchAll(ctx context.Context, target string) ([]map[string]any, error) {
	var records []map[string]any

	next := target
	for next != "" {
		var p page
		if err := c.GetJSON(ctx, next, &p); err != nil {
			return nil, err
		}

		records = append(records, p.Value...)

		if len(records) >= MaxRecords {
			slog.Warn("pagination record cap reached, returning partial result",
				"cap", MaxRecords,
				"fetched", len(records),
			)
			return records[:MaxRecords], nil
		}

		next = p.NextLink
	}

	return records, nil
}

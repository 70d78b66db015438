package warehouse

import (
	"context"
	"fmt"

	"gsc-insights/internal/domain"
	"gsc-insights/internal/report"
)

// Coverage is the span of days present in one table.
type Coverage struct {
	Table     Table  `json:"table_name"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
	Days      int    `json:"days"`
}

// Coverage lists the days present in both tables. Metadata reads are not
// cost gated.
func (e *Engine) Coverage(ctx context.Context) ([]Coverage, error) {
	st := Statement{Operation: "coverage", SQL: e.dialect.CoverageSQL()}
	t, err := e.backend.Query(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	rows, err := report.Decode[Coverage](t)
	if err != nil {
		return nil, fmt.Errorf("coverage: %w", err)
	}
	for i := range rows {
		rows[i].FirstDate = partitionDate(rows[i].FirstDate)
		rows[i].LastDate = partitionDate(rows[i].LastDate)
	}
	return rows, nil
}

// partitionDate turns a YYYYMMDD partition id into YYYY-MM-DD.
func partitionDate(id string) string {
	if len(id) != 8 {
		return id
	}
	return id[:4] + "-" + id[4:6] + "-" + id[6:]
}

// CheckRange fails when q starts before the first day present in t, so a
// query never pays for a range the export does not hold.
func (e *Engine) CheckRange(ctx context.Context, q Query, t Table) error {
	if err := q.Validate(); err != nil {
		return err
	}
	cov, err := e.Coverage(ctx)
	if err != nil {
		return err
	}
	for _, c := range cov {
		if c.Table != t {
			continue
		}
		if c.FirstDate == "" {
			return domain.ErrNotFound("table %s holds no data", t)
		}
		if q.start < c.FirstDate {
			return domain.ErrValidation("start date %s is before the first day in %s (%s)", q.start, t, c.FirstDate)
		}
		return nil
	}
	return domain.ErrNotFound("table %s not found", t)
}

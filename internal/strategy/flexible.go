package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/ranking"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

var (
	departureOffsets = []int{-3, -2, -1, 1, 2, 3}
	returnOffsets    = []int{-2, -1, 1, 2}
)

// FlexibleDate shifts one travel date at a time, holding the other fixed.
type FlexibleDate struct {
	opts Options
}

type dateShift struct {
	leg       models.Leg
	offset    int
	departure string
	ret       string
}

func (f *FlexibleDate) Kind() models.Strategy { return models.StrategyFlexibleDate }

func (f *FlexibleDate) MaxCalls(req models.SearchRequest) int {
	return len(dateShifts(req))
}

func (f *FlexibleDate) Run(ctx context.Context, req models.SearchRequest, baseline *models.Offer, q Quoter, res *ratelimit.Reservation) Outcome {
	out := Outcome{Strategy: f.Kind()}
	shifts := dateShifts(req)
	if len(shifts) == 0 {
		return out
	}

	base := req.Quote(f.opts.MaxResults)
	queries := make([]subQuery, len(shifts))
	for i, sh := range shifts {
		qr := base
		qr.DepartureDate = sh.departure
		if qr.ReturnDate != nil {
			ret := sh.ret
			qr.ReturnDate = &ret
		}
		queries[i] = subQuery{query: qr, tag: qr.DepartureDate + "/" + qr.ReturnDateValue()}
	}
	results := runQueries(ctx, f.Kind(), queries, q, res, f.opts.Concurrency, &out)

	for i, r := range results {
		best, ok := ranking.Cheapest(r.offers)
		if !ok || !beats(baseline, best) {
			continue
		}
		sh := shifts[i]
		description := describeShift(sh, req)
		risks := []string{"Travel dates differ from the ones requested"}
		id := fmt.Sprintf("%s:%s:%s:%s", f.Kind(), sh.departure, sh.ret, best.ID)
		out.Offers = append(out.Offers, label(best, f.Kind(), id, description, risks, baseline))
	}
	ranking.Sort(out.Offers)
	return out
}

// dateShifts lists every shifted date pair worth quoting. Shifts that would
// put the return before the departure are left out.
func dateShifts(req models.SearchRequest) []dateShift {
	dep, err := time.Parse(models.DateLayout, req.DepartureDate)
	if err != nil {
		return nil
	}
	var ret time.Time
	roundTrip := req.IsRoundTrip()
	if roundTrip {
		if ret, err = time.Parse(models.DateLayout, *req.ReturnDate); err != nil {
			return nil
		}
	}

	var shifts []dateShift
	for _, off := range departureOffsets {
		d := dep.AddDate(0, 0, off)
		sh := dateShift{leg: models.LegOutbound, offset: off, departure: d.Format(models.DateLayout)}
		if roundTrip {
			if ret.Before(d) {
				continue
			}
			sh.ret = *req.ReturnDate
		}
		shifts = append(shifts, sh)
	}
	if !roundTrip {
		return shifts
	}
	for _, off := range returnOffsets {
		r := ret.AddDate(0, 0, off)
		if r.Before(dep) {
			continue
		}
		shifts = append(shifts, dateShift{
			leg:       models.LegReturn,
			offset:    off,
			departure: req.DepartureDate,
			ret:       r.Format(models.DateLayout),
		})
	}
	return shifts
}

func describeShift(sh dateShift, req models.SearchRequest) string {
	days := "days"
	n := sh.offset
	dir := "later"
	if n < 0 {
		n, dir = -n, "earlier"
	}
	if n == 1 {
		days = "day"
	}
	if sh.leg == models.LegReturn {
		return fmt.Sprintf("Return on %s (%d %s %s than %s)", longDate(sh.ret), n, days, dir, *req.ReturnDate)
	}
	return fmt.Sprintf("Depart on %s (%d %s %s than %s)", longDate(sh.departure), n, days, dir, req.DepartureDate)
}

func longDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon 2 Jan 2006")
}

func (*FlexibleDate) isRunner() {}

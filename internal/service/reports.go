package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Veysel440/go-etracker/internal/core"
)

const (
	DefaultExpiringWindowDays = 45
	DefaultUnenforcedLimit    = 150
	DefaultReportBatchSize    = 200
)

type ReportsConfig struct {
	BatchSize int
	Now       func() time.Time
}

type ExpiringRow struct {
	DocumentID  string `json:"documentId"`
	Hostname    string `json:"hostname"`
	Application string `json:"application"`
	Group       string `json:"group"`
	ItemKey     string `json:"itemKey"`
	EnforcedKey string `json:"enforcedKey"`
	Reason      string `json:"reason"`
	Approver    string `json:"approver"`
	UpdatedAt   string `json:"updatedAt"`
	ExpiresAt   string `json:"expiresAt"`
	DaysUntil   int    `json:"daysUntil"`

	expires time.Time
}

type UnenforcedRow struct {
	DocumentID         string `json:"documentId"`
	Hostname           string `json:"hostname"`
	Application        string `json:"application"`
	Group              string `json:"group"`
	ItemKey            string `json:"itemKey"`
	ExceptionActive    bool   `json:"exceptionActive"`
	ExceptionExpiresAt string `json:"exceptionExpiresAt"`
	Reason             string `json:"reason"`
	EnforcedKey        string `json:"enforcedKey"`
}

type GroupCount struct {
	Group string `json:"group"`
	Count int    `json:"count"`
}

type Summary struct {
	TotalActive int          `json:"totalActive"`
	ByGroup     []GroupCount `json:"byGroup"`
	Overdue     int          `json:"overdue"`
	DueSoon     int          `json:"dueSoon"`
	DueLater    int          `json:"dueLater"`
}

type Report struct {
	Expiring    []ExpiringRow   `json:"expiring"`
	Summary     Summary         `json:"summary"`
	Unenforced  []UnenforcedRow `json:"unenforced"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Reports derives exception and enforcement reports from a full inventory scan.
type Reports struct {
	inv     InventoryRepo
	cfg     ReportsConfig
	logger  *slog.Logger
	metrics *Metrics
}

func NewReports(inv InventoryRepo, cfg ReportsConfig, logger *slog.Logger, m *Metrics) *Reports {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultReportBatchSize
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{inv: inv, cfg: cfg, logger: logger, metrics: m}
}

// Compile scans every document and builds the expiring and unenforced reports.
// Exceptions expiring within expiringWindowDays (or already overdue) are listed;
// unenforcedLimit caps the unenforced rows, 0 meaning no cap.
func (r *Reports) Compile(ctx context.Context, expiringWindowDays, unenforcedLimit int) (Report, error) {
	ctx, span := tracer.Start(ctx, "Reports.Compile")
	defer span.End()

	started := time.Now()
	now := r.cfg.Now().UTC()
	threshold := now.Add(time.Duration(max(1, expiringWindowDays)) * core.Day)
	unenforcedLimit = max(0, unenforcedLimit)

	rep := Report{
		Expiring:    []ExpiringRow{},
		Unenforced:  []UnenforcedRow{},
		GeneratedAt: now,
	}
	byGroup := map[string]int{}
	scanned := 0

	for doc, err := range IterateAll(ctx, r.inv, r.cfg.BatchSize) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Report{}, err
		}
		scanned++
		hostname, application := doc.Descriptor.Hostname, doc.Application()

		for _, it := range doc.Items() {
			entry := it.Entry
			var ex core.Exception
			if entry.Exception != nil {
				ex = *entry.Exception
			}
			approver := ""
			if ex.Approver != nil {
				approver = ex.Approver.Name
			}

			if ex.Active {
				rep.Summary.TotalActive++
				byGroup[it.Group]++

				if expires, ok := core.ParseTimestamp(ex.ExpiresAt); ok {
					switch {
					case expires.Before(now):
						rep.Summary.Overdue++
					case !expires.After(threshold):
						rep.Summary.DueSoon++
					default:
						rep.Summary.DueLater++
					}
					if !expires.After(threshold) {
						rep.Expiring = append(rep.Expiring, ExpiringRow{
							DocumentID:  doc.ID,
							Hostname:    hostname,
							Application: application,
							Group:       it.Group,
							ItemKey:     it.ItemKey,
							EnforcedKey: entry.Key(),
							Reason:      ex.Reason,
							Approver:    approver,
							UpdatedAt:   ex.UpdatedAt,
							ExpiresAt:   ex.ExpiresAt,
							DaysUntil:   core.DaysUntil(expires, now),
							expires:     expires,
						})
					}
				}
			}

			if !entry.IsEnforced() {
				rep.Unenforced = append(rep.Unenforced, UnenforcedRow{
					DocumentID:         doc.ID,
					Hostname:           hostname,
					Application:        application,
					Group:              it.Group,
					ItemKey:            it.ItemKey,
					ExceptionActive:    ex.Active,
					ExceptionExpiresAt: ex.ExpiresAt,
					Reason:             ex.Reason,
					EnforcedKey:        entry.Key(),
				})
			}
		}
	}

	sortExpiring(rep.Expiring)
	rep.Summary.ByGroup = sortGroupCounts(byGroup)

	if unenforcedLimit > 0 && len(rep.Unenforced) > unenforcedLimit {
		rep.Unenforced = rep.Unenforced[:unenforcedLimit]
	}

	r.metrics.observeCompile(time.Since(started).Seconds(), scanned, rep.Summary.ByGroup)
	span.SetAttributes(
		attribute.Int("etracker.documents", scanned),
		attribute.Int("etracker.expiring", len(rep.Expiring)),
		attribute.Int("etracker.unenforced", len(rep.Unenforced)),
	)
	r.logger.Info("report_compiled",
		"documents", scanned, "active", rep.Summary.TotalActive,
		"expiring", len(rep.Expiring), "unenforced", len(rep.Unenforced),
		"ms", time.Since(started).Milliseconds())
	return rep, nil
}

// sortExpiring orders rows by expiration, rows without one last, then by hostname.
func sortExpiring(rows []ExpiringRow) {
	slices.SortStableFunc(rows, func(a, b ExpiringRow) int {
		switch {
		case a.expires.Equal(b.expires):
			return cmp.Compare(a.Hostname, b.Hostname)
		case a.expires.IsZero():
			return 1
		case b.expires.IsZero():
			return -1
		}
		return a.expires.Compare(b.expires)
	})
}

func sortGroupCounts(m map[string]int) []GroupCount {
	out := make([]GroupCount, 0, len(m))
	for g, n := range m {
		out = append(out, GroupCount{Group: g, Count: n})
	}
	slices.SortFunc(out, func(a, b GroupCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
	return out
}

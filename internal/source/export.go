package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ginjaninja78/submission-merger/internal/types"
)

// ExportOptions configures the ExportSource.
type ExportOptions struct {
	URLTemplate       string        // one %s for the document id
	Timeout           time.Duration // per download; default 30s
	RequestsPerMinute int           // 0 disables throttling
	UserAgent         string
}

// ExportSource downloads each document as an xlsx export over HTTP and
// reads the requested sheet from it.
type ExportSource struct {
	client      *http.Client
	urlTemplate string
	userAgent   string
	limiter     *rate.Limiter
	log         *zap.Logger
}

// NewExportSource creates an ExportSource.
func NewExportSource(opts ExportOptions, logger *zap.Logger) *ExportSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "submission-merger/1.0"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &ExportSource{
		client:      &http.Client{Timeout: opts.Timeout},
		urlTemplate: opts.URLTemplate,
		userAgent:   opts.UserAgent,
		limiter:     limiter,
		log:         logger,
	}
}

// Fetch implements TableSource.
func (s *ExportSource) Fetch(ctx context.Context, documentID, sheetName string) (types.Table, error) {
	if !validDocumentID.MatchString(documentID) {
		return nil, fetchFailure(documentID, eris.New("malformed document id"))
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fetchFailure(documentID, err)
		}
	}

	url := fmt.Sprintf(s.urlTemplate, documentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fetchFailure(documentID, err)
	}
	defer resp.Body.Close()

	s.log.Debug("source: export downloaded",
		zap.String("document_id", documentID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fetchFailure(documentID, eris.Errorf("unexpected status %d", resp.StatusCode))
	}

	return ReadWorkbook(resp.Body, documentID, sheetName)
}

package refimg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ukaji3/refimg-go/pkg/refimg/models"
	"github.com/ukaji3/refimg-go/pkg/refimg/parser"
	"golang.org/x/sync/errgroup"
)

// Uploader publishes pairs. Outcomes must be returned in the order of pairs,
// one per pair, and failures are reported in the outcome rather than as an error.
type Uploader interface {
	UploadAll(ctx context.Context, pairs []models.Pair) []models.UploadOutcome
}

// Input is one uploaded workbook.
type Input struct {
	// Name is the client file name; its extension is validated.
	Name string
	// Size is the declared size in bytes, or -1 when unknown.
	Size int64
	Body io.Reader
}

// Extraction is what was read from a workbook before pairing.
type Extraction struct {
	Sheet      string
	References []models.Reference
	Images     []models.EmbeddedImage
	Skipped    []models.SkippedImage
}

// Processor runs the pipeline for one workbook at a time. It holds no
// per-request state and is safe for concurrent use.
type Processor struct {
	opts     Options
	tokens   map[string]bool
	uploader Uploader
	logger   *slog.Logger
}

// NewProcessor creates a Processor. A nil logger uses slog.Default().
func NewProcessor(opts Options, uploader Uploader, logger *slog.Logger) (*Processor, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if uploader == nil {
		return nil, errors.New("uploader is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		opts:     opts,
		tokens:   opts.tokenSet(),
		uploader: uploader,
		logger:   logger,
	}, nil
}

// Options returns the options the processor was built with.
func (p *Processor) Options() Options {
	return p.opts
}

// Process validates, parses, pairs and uploads one workbook.
//
// Request-level failures are returned as a *ValidationError or a
// *FormatError and no report is produced. Upload failures never fail the
// call; they are counted in the report.
func (p *Processor) Process(ctx context.Context, in Input) (*models.ReportSummary, error) {
	start := time.Now()
	logger := p.logger.With("workbook", in.Name)

	if in.Body == nil {
		return nil, NewValidationError("file", ErrNoFile)
	}
	br := bufio.NewReaderSize(in.Body, SniffLen)
	head, err := br.Peek(SniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := ValidateUpload(in.Name, in.Size, head, p.opts); err != nil {
		logger.Warn("upload rejected", "error", err)
		return nil, err
	}

	if p.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RequestTimeout)
		defer cancel()
	}

	wb, err := parser.Open(br, parser.OpenOptions{
		Name:        in.Name,
		MaxSize:     p.opts.MaxFileSize,
		MaxPartSize: p.opts.MaxPartSize,
		TempDir:     p.opts.TempDir,
	})
	if err != nil {
		if errors.Is(err, parser.ErrTooLarge) {
			return nil, NewValidationError("size", fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, p.opts.MaxFileSize))
		}
		return nil, err
	}
	defer func() {
		if cerr := wb.Close(); cerr != nil {
			logger.Warn("release workbook", "error", cerr)
		}
	}()

	ex, err := p.Extract(ctx, wb)
	if err != nil {
		logger.Warn("workbook unreadable", "error", err)
		return nil, err
	}
	logger = logger.With("sheet", ex.Sheet)
	for _, s := range ex.Skipped {
		logger.Info("image skipped", "row", s.AnchorRow, "column", s.AnchorColumn.String(), "part", s.Part, "reason", s.Reason)
	}

	pairing := PairImages(ex.References, ex.Images)
	counts := CountsFor(ex.References, ex.Images, pairing, len(ex.Skipped), p.opts.StartRow)
	logger.Info("workbook parsed",
		"references", counts.TotalRefs,
		"images", counts.ImagesFound,
		"pairs", len(pairing.Pairs),
		"ignored", counts.IgnoredImages,
		"without_image", counts.ReferencesWithoutImage)

	outcomes := p.uploader.UploadAll(ctx, pairing.Pairs)
	summary := Aggregate(counts, outcomes)
	summary.Workbook = in.Name

	logger.Info("workbook processed",
		"uploads_successful", summary.UploadsSuccessful,
		"uploads_failed", summary.UploadsFailed,
		"duration", time.Since(start))
	return summary, nil
}

// Extract reads references and images from an opened workbook. The cell grid
// and the drawing parts are parsed concurrently; they read disjoint parts.
func (p *Processor) Extract(ctx context.Context, wb *parser.Workbook) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := wb.Sheet(p.opts.Sheet)
	if err != nil {
		return nil, err
	}

	var (
		grid *models.Grid
		set  *parser.ImageSet
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		grid, err = parser.ParseSheet(wb, info.Name)
		return err
	})
	g.Go(func() error {
		var err error
		set, err = parser.ResolveImages(wb, info.Name)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := set.Images
	if p.opts.InCellImages {
		taken := make(map[parser.CellKey]bool, len(images))
		for _, img := range images {
			taken[parser.CellKey{Row: img.AnchorRow, Column: img.AnchorColumn}] = true
		}
		inCell, err := parser.ResolveInCellImages(wb, info.Name, taken)
		if err != nil {
			return nil, err
		}
		images = append(images, inCell...)
	}

	return &Extraction{
		Sheet:      info.Name,
		References: ValidateReferences(grid, p.opts.ReferenceColumn, p.opts.StartRow, p.tokens),
		Images:     images,
		Skipped:    set.Skipped,
	}, nil
}

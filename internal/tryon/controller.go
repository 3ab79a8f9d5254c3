package tryon

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// SearchLimit is how many products a wizard search asks for.
const SearchLimit = 6

// Backend is what the wizard talks to, normally the HTTP API.
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Product, error)
	SubmitTryOn(ctx context.Context, req SubmitRequest) (ProviderResult, error)
	StatusSource
}

// Step is the wizard page currently shown.
type Step int

const (
	StepSearch Step = iota
	StepPhoto
	StepResult
)

func (s Step) String() string {
	switch s {
	case StepPhoto:
		return "photo"
	case StepResult:
		return "result"
	default:
		return "search"
	}
}

// Controller sequences search, photo capture and try-on for one user. It
// holds at most one active job; resets cancel its poller.
type Controller struct {
	backend Backend
	poller  *Poller
	logger  *infra.Logger

	mu       sync.Mutex
	gen      uint64
	products []domain.Product
	selected *domain.Product
	photo    string
	job      *domain.TryOnJob
	task     *Task
	busy     bool
}

func NewController(backend Backend, opts PollerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Controller{
		backend: backend,
		poller:  NewPoller(backend, opts),
		logger:  logger,
	}
}

// Search starts over with a new query, cancelling any job in flight.
func (c *Controller) Search(ctx context.Context, query string) ([]domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.Required("query", "query is required")
	}
	c.Reset()

	products, err := c.backend.Search(ctx, query, SearchLimit)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.products = products
	c.mu.Unlock()
	return products, nil
}

// SelectProduct picks the garment to try on from the last search results.
func (c *Controller) SelectProduct(id string) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			selected := p
			c.selected = &selected
			return selected, nil
		}
	}
	return domain.Product{}, &domain.ValidationError{Field: "productId", Message: "product is not part of the current results"}
}

// SetPhoto stores the user photo as base64 or a data URI.
func (c *Controller) SetPhoto(image string) error {
	image = strings.TrimSpace(image)
	if image == "" {
		return domain.Required("userImage", "photo is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return domain.Required("productId", "select a product first")
	}
	c.photo = image
	return nil
}

// Step reports which wizard page applies to the current state.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.job != nil:
		return StepResult
	case c.selected != nil:
		return StepPhoto
	default:
		return StepSearch
	}
}

// Busy reports whether a try-on is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Job returns the current job, if any.
func (c *Controller) Job() (domain.TryOnJob, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return domain.TryOnJob{}, false
	}
	return *c.job, true
}

// TryOn submits the selected product and photo and blocks until the job
// settles. A second call while one is outstanding fails with ErrJobInFlight.
func (c *Controller) TryOn(ctx context.Context) (domain.TryOnJob, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return domain.TryOnJob{}, domain.ErrJobInFlight
	}
	if c.selected == nil {
		c.mu.Unlock()
		return domain.TryOnJob{}, domain.Required("productId", "select a product first")
	}
	if c.photo == "" {
		c.mu.Unlock()
		return domain.TryOnJob{}, domain.Required("userImage", "photo is required")
	}
	c.busy = true
	gen := c.gen
	req := SubmitRequest{SourceImage: c.photo, GarmentImageURL: c.selected.ImageURL}
	c.mu.Unlock()

	res, err := c.backend.SubmitTryOn(ctx, req)
	if err != nil {
		c.release(gen)
		return domain.TryOnJob{}, err
	}

	status, image := res.Classify()
	job := domain.TryOnJob{JobID: res.EventID, Status: status, Result: image}
	switch {
	case status == domain.JobStatusFailed:
		return c.settle(gen, job, domain.ErrTryOnFailed)
	case status == domain.JobStatusSucceeded && image != nil:
		return c.settle(gen, job, nil)
	case res.EventID == "":
		c.release(gen)
		return domain.TryOnJob{}, &domain.UpstreamError{Provider: "tryon", Op: "submit", Err: errors.New("response carried neither an event id nor a result")}
	}

	job.Status = domain.JobStatusPending
	job.Result = nil
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return domain.TryOnJob{JobID: job.JobID, Status: domain.JobStatusCanceled}, context.Canceled
	}
	task := c.poller.Start(ctx, job.JobID)
	c.task = task
	c.job = &job
	c.mu.Unlock()

	c.logger.Debug().Str("event_id", job.JobID).Msg("tryon: polling started")
	out := task.Wait()
	return c.settle(gen, out.Job(), out.Err)
}

// settle records a terminal job unless a reset happened meanwhile.
func (c *Controller) settle(gen uint64, job domain.TryOnJob, err error) (domain.TryOnJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return domain.TryOnJob{JobID: job.JobID, Status: domain.JobStatusCanceled}, context.Canceled
	}
	c.job = &job
	c.task = nil
	c.busy = false
	return job, err
}

func (c *Controller) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.busy = false
	}
}

// RetakePhoto discards the photo and any job but keeps the selected product.
func (c *Controller) RetakePhoto() {
	c.mu.Lock()
	task := c.clearJobLocked()
	c.photo = ""
	c.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

// Reset returns the wizard to the search step.
func (c *Controller) Reset() {
	c.mu.Lock()
	task := c.clearJobLocked()
	c.photo = ""
	c.selected = nil
	c.products = nil
	c.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

func (c *Controller) clearJobLocked() *Task {
	task := c.task
	c.gen++
	c.task = nil
	c.job = nil
	c.busy = false
	return task
}

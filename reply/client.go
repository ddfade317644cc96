package reply

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/sentinel/core"
	"github.com/hupe1980/sentinel/logging"
	"github.com/hupe1980/sentinel/model"
)

// Request is the input for one reply generation.
type Request struct {
	Prompt       string
	ResearchMode bool
	// Attachment is set when the operator attached a file this turn.
	Attachment *core.FileRef
}

// AllowWebAugmentation reports whether the provider may ground the reply with
// web results: research mode is on and no file is attached.
func AllowWebAugmentation(researchMode, hasAttachment bool) bool {
	return researchMode && !hasAttachment
}

// Options configures a Client.
type Options struct {
	Logger logging.Logger
}

// Client drives a model.Model under the reply contract.
type Client struct {
	model  model.Model
	logger logging.Logger
}

// NewClient creates a Client for m.
func NewClient(m model.Model, optFns ...func(o *Options)) *Client {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{model: m, logger: opts.Logger}
}

// Generate requests a reply and validates it.
//
// Transport failures wrap core.ErrGeneration. Replies that break the contract,
// including a malformed action, wrap core.ErrContractViolation; in the latter
// case the returned Reply still carries the Malformed action.
func (c *Client) Generate(ctx context.Context, req Request) (Reply, error) {
	mreq := model.Request{
		Prompt:               req.Prompt,
		ContractName:         ContractName,
		Contract:             Contract(),
		AllowWebAugmentation: AllowWebAugmentation(req.ResearchMode, req.Attachment != nil),
	}
	if req.Attachment != nil {
		mreq.FileReferences = []core.FileRef{*req.Attachment}
	}

	info := c.model.Info()
	start := time.Now()
	resp, err := model.Collect(ctx, c.model, mreq)
	if sl, ok := c.logger.(*logging.SentinelLogger); ok {
		sl.LogModelCall(info.Provider, info.Name, time.Since(start), err)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}

	r, err := Decode(resp.Text)
	if err != nil {
		c.logger.Warn("reply violates contract", "provider", info.Provider, "error", err)
		return Reply{}, err
	}
	if r.Discarded > 0 {
		c.logger.Warn("ignored extra action candidates", "count", r.Discarded)
	}
	if r.Action.IsMalformed() {
		c.logger.Warn("malformed action in reply", "reason", r.Action.Reason)
		return r, fmt.Errorf("%w: %s", core.ErrContractViolation, r.Action.Reason)
	}
	return r, nil
}

package voucher

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"golang.org/x/sync/errgroup"
)

const (
	MinCodeLength = 8
	MaxCodeLength = 10
	// Quorum is how many sets must contain a code for it to be accepted
	Quorum = 2

	falsePositiveRate = 0.01
)

// Validator checks voucher codes against several independently issued code sets
type Validator struct {
	mu      sync.RWMutex
	sets    []*codeSet
	sources []string
	client  *http.Client
}

// codeSet is the codes loaded from a single source. The bloom filter answers
// "definitely absent" without touching the map.
type codeSet struct {
	codes  map[string]struct{}
	filter *bloom.BloomFilter
}

func (cs *codeSet) contains(code string) bool {
	if !cs.filter.TestString(code) {
		return false
	}
	_, ok := cs.codes[code]
	return ok
}

// NewValidator creates an empty voucher validator
func NewValidator() *Validator {
	return &Validator{
		// Large files (~600MB) need more time
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Load reads every source concurrently; http(s) sources are downloaded,
// anything else is read from disk. Gzip input is detected automatically.
// The previous sets are replaced only if every source loads.
func (v *Validator) Load(ctx context.Context, sources []string) error {
	if len(sources) == 0 {
		return fmt.Errorf("no voucher sources provided")
	}

	sets := make([]*codeSet, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			set, err := v.loadSource(gctx, source)
			if err != nil {
				return fmt.Errorf("failed to load source %d: %w", i+1, err)
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.sets = sets
	v.sources = append([]string(nil), sources...)
	return nil
}

// LoadFromURLs loads voucher sets from remote files
func (v *Validator) LoadFromURLs(ctx context.Context, urls []string) error {
	return v.Load(ctx, urls)
}

// LoadFromFiles loads voucher sets from local files
func (v *Validator) LoadFromFiles(ctx context.Context, paths []string) error {
	return v.Load(ctx, paths)
}

func (v *Validator) loadSource(ctx context.Context, source string) (*codeSet, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return v.loadFromURL(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return parseCodes(ctx, f)
}

func (v *Validator) loadFromURL(ctx context.Context, url string) (*codeSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return parseCodes(ctx, resp.Body)
}

// parseCodes reads one code per line, transparently gunzipping the input
func parseCodes(ctx context.Context, r io.Reader) (*codeSet, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	var src io.Reader = br
	if bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	codes := make(map[string]struct{})
	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		if len(codes)%100000 == 0 && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		code := normalize(scanner.Text())
		if code != "" {
			codes[code] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	filter := bloom.NewWithEstimates(uint(max(len(codes), 1)), falsePositiveRate)
	for code := range codes {
		filter.AddString(code)
	}
	return &codeSet{codes: codes, filter: filter}, nil
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid checks if a voucher code is valid.
// A code is valid if it has 8-10 characters and appears in at least Quorum sets.
func (v *Validator) IsValid(ctx context.Context, code string) bool {
	code = normalize(code)
	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	count := 0
	for _, set := range v.sets {
		if ctx.Err() != nil {
			return false
		}
		if set.contains(code) {
			count++
			if count >= Quorum {
				return true
			}
		}
	}
	return false
}

// GetStats returns statistics about loaded voucher sets
func (v *Validator) GetStats() map[string]interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()

	sizes := make([]int, len(v.sets))
	total := 0
	for i, set := range v.sets {
		sizes[i] = len(set.codes)
		total += sizes[i]
	}

	return map[string]interface{}{
		"total_files":    len(v.sets),
		"file_paths":     append([]string(nil), v.sources...),
		"file_sizes":     sizes,
		"total_vouchers": total,
	}
}

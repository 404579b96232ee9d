package coaching

import (
	"embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/yungbote/prepcoach-backend/internal/platform/envutil"
	"github.com/yungbote/prepcoach-backend/internal/platform/logger"
)

const (
	ruleBookEnv      = "COACHING_RULEBOOK_YAML"
	fanOutEnv        = "COACHING_FANOUT"
	fanOutLimitEnv   = "COACHING_FANOUT_LIMIT"
	embeddedRuleBook = "rulebook.yaml"
)

//go:embed rulebook.yaml
var ruleBookFS embed.FS

var (
	ruleBookOnce  sync.Once
	ruleBookCache *RuleBook
	ruleBookErr   error
)

// Load returns the process-wide rule book, parsed once. A broken override file falls back to
// the embedded book with a warning; a broken embedded book is an error.
func Load(log *logger.Logger) (*RuleBook, error) {
	ruleBookOnce.Do(func() {
		ruleBookCache, ruleBookErr = loadRuleBook(log)
	})
	return ruleBookCache, ruleBookErr
}

func loadRuleBook(log *logger.Logger) (*RuleBook, error) {
	if path := strings.TrimSpace(os.Getenv(ruleBookEnv)); path != "" {
		book, err := LoadFile(path)
		if err == nil {
			return book, nil
		}
		if log != nil {
			log.Warn("coaching: rule book override failed; using embedded", "path", path, "error", err)
		}
	}
	return Embedded()
}

// Embedded parses the rule book compiled into the binary.
func Embedded() (*RuleBook, error) {
	data, err := ruleBookFS.ReadFile(embeddedRuleBook)
	if err != nil {
		return nil, fmt.Errorf("rulebook: read embedded: %w", err)
	}
	return Parse(data)
}

func LoadFile(path string) (*RuleBook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rulebook: read %s: %w", path, err)
	}
	return Parse(data)
}

// PolicyFromEnv reads COACHING_FANOUT (top1|top_n|per_category) and COACHING_FANOUT_LIMIT.
func PolicyFromEnv() Policy {
	p := Policy{
		Mode:  FanOut(strings.ToLower(envutil.String(fanOutEnv, string(FanOutTop1)))),
		Limit: envutil.Int(fanOutLimitEnv, 3),
	}
	if !p.Valid() {
		p.Mode = FanOutTop1
	}
	return p
}

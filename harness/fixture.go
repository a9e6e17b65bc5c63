package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c360/flowtest/errors"
	"github.com/c360/flowtest/flowfile"
)

// fixtureItem is one entry of a YAML enqueue fixture.
type fixtureItem struct {
	Attributes map[string]string `yaml:"attributes"`
	Content    string            `yaml:"content"`
}

// EnqueueFixture loads a YAML fixture file holding a list of flow file
// definitions and enqueues one flow file per entry:
//
//	- attributes:
//	    filename: a.txt
//	  content: "hello"
//	- attributes:
//	    filename: b.txt
//	  content: "world"
//
// Returns the number of flow files enqueued.
func (r *Runner) EnqueueFixture(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "Runner", "EnqueueFixture", "read fixture")
	}

	var items []fixtureItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return 0, errors.WrapConfig(err, "Runner", "EnqueueFixture", "parse fixture")
	}
	if len(items) == 0 {
		return 0, errors.WrapConfig(
			fmt.Errorf("%w: fixture %q holds no flow files", errors.ErrInvalidConfig, path),
			"Runner", "EnqueueFixture", "fixture validation")
	}

	for _, item := range items {
		ff := flowfile.New(r.shared.NextID()).
			WithContent([]byte(item.Content)).
			WithAttributes(item.Attributes)
		r.Enqueue(ff)
	}
	return len(items), nil
}

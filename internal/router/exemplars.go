package router

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Exemplar is one few-shot routing example for the learned router prompt.
type Exemplar struct {
	Question string `yaml:"question"`
	Route    string `yaml:"route"`
}

// defaultExemplars is the compiled-in training set, used when no exemplar
// file is configured.
var defaultExemplars = []Exemplar{
	{Question: "What is the return window for unopened Beverages per policy?", Route: "rag"},
	{Question: "List the top 3 products by revenue", Route: "sql"},
	{Question: "During Summer Beverages 1997 which category sold the most units?", Route: "hybrid"},
	{Question: "Explain the average order value definition", Route: "rag"},
	{Question: "Total revenue from Beverages in June 1997", Route: "hybrid"},
	{Question: "Best customer by gross margin in 1997", Route: "hybrid"},
	{Question: "Return policy for perishables", Route: "rag"},
	{Question: "Compute top 5 customers by revenue", Route: "sql"},
}

// LoadExemplars reads routing exemplars from a YAML file of the shape
//
//	examples:
//	  - question: ...
//	    route: rag | sql | hybrid
//
// An empty path returns the compiled-in set.
func LoadExemplars(path string) ([]Exemplar, error) {
	if path == "" {
		return defaultExemplars, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "router: read exemplars %s", path)
	}

	var wrapper struct {
		Examples []Exemplar `yaml:"examples"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "router: parse exemplars")
	}
	if len(wrapper.Examples) == 0 {
		return nil, eris.Errorf("router: no examples in %s", path)
	}
	for _, ex := range wrapper.Examples {
		if _, ok := ParseRoute(ex.Route); !ok {
			return nil, eris.Errorf("router: invalid route %q for %q", ex.Route, ex.Question)
		}
	}
	return wrapper.Examples, nil
}

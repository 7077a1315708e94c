package generator

import (
	"fmt"
	"sort"
	"strings"
)

// Metal базовая цена для симуляции, юаней за грамм.
type Metal struct {
	Name      string
	BasePrice float64
}

var metals = map[string]Metal{
	"gold":     {Name: "gold", BasePrice: 1087.13},
	"kgold":    {Name: "kgold", BasePrice: 980.50},
	"platinum": {Name: "platinum", BasePrice: 1250.80},
	"silver":   {Name: "silver", BasePrice: 4.25},
}

func LookupMetal(name string) (Metal, error) {
	m, ok := metals[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Metal{}, fmt.Errorf("unknown metal %q, expected one of %s", name, strings.Join(MetalNames(), ", "))
	}
	return m, nil
}

func MetalNames() []string {
	names := make([]string, 0, len(metals))
	for name := range metals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package detector

import (
	"fmt"
	"strings"

	"etlinspector/internal/dataset"
	"etlinspector/pkg/contracts/domain"
)

var kindOrder = []dataset.Kind{dataset.KindNumeric, dataset.KindDate, dataset.KindBoolean, dataset.KindText}

// TypeConsistencyCheck flags columns whose values do not share one kind.
type TypeConsistencyCheck struct{}

func NewTypeConsistencyCheck() *TypeConsistencyCheck {
	return &TypeConsistencyCheck{}
}

func (c *TypeConsistencyCheck) Name() string {
	return TypeConsistencyCheckName
}

func (c *TypeConsistencyCheck) Category() domain.Category {
	return domain.CategoryTypeConsistency
}

func (c *TypeConsistencyCheck) Description() string {
	return "Finds the majority value type of each column and flags values of other types."
}

func (c *TypeConsistencyCheck) InspectColumn(col dataset.Column, _ int, _ Thresholds) (domain.Issue, bool, error) {
	counts := col.KindCounts()
	if len(counts) < 2 {
		return domain.Issue{}, false, nil
	}

	majority := dataset.MajorityKind(counts)
	details := []domain.Detail{detail("majority", majority)}

	var minority int
	var found []string
	for _, k := range kindOrder {
		n, ok := counts[k]
		if !ok {
			continue
		}
		found = append(found, fmt.Sprintf("%s: %d", k, n))
		details = append(details, detail("kind."+string(k), n))
		if k != majority {
			minority += n
		}
	}

	return newIssue(c, col.Name, domain.SeverityHigh, minority,
		fmt.Sprintf("%d values do not match the majority type %s (found %s)", minority, majority, strings.Join(found, ", ")),
		details...,
	), true, nil
}

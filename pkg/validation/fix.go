package validation

import (
	"fmt"

	"github.com/dukex/flowsmith/pkg/catalog"
	"github.com/dukex/flowsmith/pkg/models"
)

// PositionStep is the horizontal spacing of synthesized canvas positions.
const PositionStep = 220.0

// Fix applies the deterministic structural fixes to doc in place, then
// re-validates it.
func (v *Validator) Fix(doc *models.WorkflowDocument) *FixResult {
	if doc == nil {
		return &FixResult{Report: v.Validate(doc)}
	}

	applied := make([]Fix, 0)
	applied = append(applied, fixCombinators(doc)...)
	applied = append(applied, fixVersions(doc)...)
	applied = append(applied, fixPositions(doc)...)

	return &FixResult{Applied: applied, Report: v.Validate(doc)}
}

func fixCombinators(doc *models.WorkflowDocument) []Fix {
	var fixes []Fix

	for _, node := range doc.Nodes {
		if node == nil {
			continue
		}

		params, ok := catalog.Decode(node).(catalog.CombinatorParameters)
		if !ok {
			continue
		}

		combinator := params.Combinator

		if params.Mode == combinator.BadMode {
			node.Assign(combinator.ModeField, combinator.GoodMode)
			fixes = append(fixes, Fix{
				Code:        CodeBadCombinator,
				Node:        node.Name,
				Field:       combinator.ModeField,
				Description: fmt.Sprintf("changed mode %q to %q", params.Mode, combinator.GoodMode),
			})
		} else if params.Mode != combinator.GoodMode {
			continue
		}

		if params.Companion == "" {
			node.Assign(combinator.CompanionField, combinator.CompanionValue)
			fixes = append(fixes, Fix{
				Code:        CodeMissingCompanion,
				Node:        node.Name,
				Field:       combinator.CompanionField,
				Description: fmt.Sprintf("set %s to %q", combinator.CompanionField, combinator.CompanionValue),
			})
		}
	}

	return fixes
}

func fixVersions(doc *models.WorkflowDocument) []Fix {
	var fixes []Fix

	for _, node := range doc.Nodes {
		if node == nil || node.TypeVersion != nil || node.Type == "" {
			continue
		}

		version := catalog.DefaultVersion(node.Type)
		node.TypeVersion = &version
		fixes = append(fixes, Fix{
			Code:        CodeMissingVersion,
			Node:        node.Name,
			Field:       "typeVersion",
			Description: fmt.Sprintf("set typeVersion to %g", version),
		})
	}

	return fixes
}

// fixPositions places unpositioned nodes on a row to the right of every
// positioned node so they never overlap an existing position.
func fixPositions(doc *models.WorkflowDocument) []Fix {
	var (
		maxX, minY float64
		positioned bool
	)

	for _, node := range doc.Nodes {
		if node == nil {
			continue
		}

		x, y, ok := node.Coordinates()
		if !ok {
			continue
		}

		if !positioned || x > maxX {
			maxX = x
		}

		if !positioned || y < minY {
			minY = y
		}

		positioned = true
	}

	next := 0.0
	if positioned {
		next = maxX + PositionStep
	}

	var fixes []Fix

	for _, node := range doc.Nodes {
		if node == nil {
			continue
		}

		if _, _, ok := node.Coordinates(); ok {
			continue
		}

		node.SetCoordinates(next, minY)
		fixes = append(fixes, Fix{
			Code:        CodeMissingPosition,
			Node:        node.Name,
			Field:       "position",
			Description: fmt.Sprintf("placed at [%g, %g]", next, minY),
		})
		next += PositionStep
	}

	return fixes
}

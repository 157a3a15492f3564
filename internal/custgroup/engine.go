// Package custgroup implements the customer-group mapping engine.
//
// The engine assigns every facility contract in an interval to exactly one
// customer group by evaluating the group predicates (fuse size, subscribed
// power, connection power or product) against the contract attributes. A
// contract matching no group is excluded with a warning; a contract matching
// more than one group produces duplicate links, which abort the whole run
// before anything is persisted.
package custgroup

import (
	"fmt"

	"tariffant/internal/keymap"
	"tariffant/internal/models"
	"tariffant/internal/reconcile"
	"tariffant/internal/tabular"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// State names the engine phase, for logs and for the report.
type State string

const (
	StateLoadingInputs    State = "loading_inputs"
	StateValidatingInputs State = "validating_inputs"
	StateMatching         State = "matching"
	StatePartitioning     State = "partitioning"
	StatePersisting       State = "persisting"
	StateDone             State = "done"
	StateAborted          State = "aborted"
)

// Inputs is the database state the engine maps over. The caller loads all
// three sets for the interval inside one transaction so the engine itself
// stays pure and testable.
type Inputs struct {
	Groups    []models.CustomerGroup
	Contracts []models.FacilityContract
	// Existing holds the links already persisted for the interval.
	Existing []models.FacilityCustomerGroupLink
}

// Report is the engine's result. Insert and Update partition the produced
// links against the existing ones; Warnings carries the non-fatal findings in
// the order they were raised.
type Report struct {
	State    State
	Warnings []string
	// Unmapped lists the facility ids of contracts no group matched.
	Unmapped []int64
	Insert   []models.FacilityCustomerGroupLink
	Update   []models.FacilityCustomerGroupLink
	Outcome  reconcile.Outcome
}

// Engine runs the mapping. One engine maps one interval.
type Engine struct {
	log logger.Logger
}

// New creates a mapping engine.
func New() *Engine {
	return &Engine{log: logger.GetGlobalLogger().WithComponent("custgroup")}
}

func (e *Engine) abort(r *Report, err *errs.TariffError) *Report {
	r.State = StateAborted
	r.Outcome = reconcile.Failure(err)
	e.log.WithError(err).Warn("mapping run aborted")
	return r
}

// Run maps the contracts of the interval onto customer groups and splits the
// produced links into inserts and updates. Persistence is left to the caller
// so the run can be wrapped in the same transaction that loaded the inputs.
func (e *Engine) Run(in Inputs, interval models.Interval) *Report {
	r := &Report{State: StateValidatingInputs}
	e.log.WithField("state", r.State).Debug("validating inputs")

	if len(in.Groups) == 0 {
		return e.abort(r, errs.New(errs.CategoryDataQuality, errs.CodeNoCustomerGroups,
			"No customer groups exist!").
			WithSuggestion("Define customer groups before mapping facilities."))
	}
	if len(in.Contracts) == 0 {
		return e.abort(r, errs.New(errs.CategoryDataQuality, errs.CodeNoFacilityContracts,
			"No facility contracts exist!").
			WithSuggestion("Import facility contracts for the interval first."))
	}

	groups := e.usableGroups(in.Groups, r)

	r.State = StateMatching
	e.log.WithFields(logger.Fields{"state": r.State, "groups": len(groups), "contracts": len(in.Contracts)}).
		Debug("matching contracts against groups")

	links := matchContracts(in.Contracts, groups, r)
	if n := len(r.Unmapped); n > 0 {
		warning := fmt.Sprintf("Facility contracts (%d) could not be mapped to a customer group!", n)
		r.Warnings = append(r.Warnings, warning)
		e.log.WithField("unmapped", n).Warn(warning)
	}

	r.State = StatePartitioning
	if dup := duplicateLinks(links); len(dup) > 0 {
		return e.abort(r, errs.Newf(errs.CategoryDataQuality, errs.CodeDuplicateRows,
			"Found duplicate facility customer group links (%d)!", len(dup)).
			WithContext("keys", dup).
			WithSuggestion("Adjust the customer group parameters so each facility contract matches exactly one group."))
	}
	if err := e.partition(links, in.Existing, r); err != nil {
		return e.abort(r, err)
	}

	r.State = StatePersisting
	r.Outcome = reconcile.Success(fmt.Sprintf(
		"Successfully imported %d new facility customer group links and updated %d existing facility customer group links in interval %s!",
		len(r.Insert), len(r.Update), interval))
	r.State = StateDone
	e.log.WithFields(logger.Fields{"insert": len(r.Insert), "update": len(r.Update)}).
		Info("mapping run complete")
	return r
}

// usableGroups drops product-strategy groups that carry no product id. Such a
// group can never match, so it is skipped with a warning rather than failing
// the run.
func (e *Engine) usableGroups(groups []models.CustomerGroup, r *Report) []models.CustomerGroup {
	usable := make([]models.CustomerGroup, 0, len(groups))
	for _, g := range groups {
		if g.Strategy == models.StrategyProduct && g.ProductID == nil {
			warning := fmt.Sprintf("Required product_id param is None for customer_group_id=%d", g.CustomerGroupID)
			r.Warnings = append(r.Warnings, warning)
			e.log.WithField("customer_group_id", g.CustomerGroupID).Warn(warning)
			continue
		}
		usable = append(usable, g)
	}
	return usable
}

// matchContracts evaluates every contract against every usable group and
// produces one link per match. A contract matching several groups therefore
// yields duplicate links, which the duplicate check rejects before
// partitioning.
func matchContracts(contracts []models.FacilityContract, groups []models.CustomerGroup, r *Report) []models.FacilityCustomerGroupLink {
	var links []models.FacilityCustomerGroupLink
	for _, fc := range contracts {
		matched := false
		for _, g := range groups {
			if g.Matches(fc) {
				matched = true
				links = append(links, models.FacilityCustomerGroupLink{
					FacilityID:      fc.FacilityID,
					DateID:          fc.DateID,
					CustomerGroupID: g.CustomerGroupID,
				})
			}
		}
		if !matched {
			r.Unmapped = append(r.Unmapped, fc.FacilityID)
		}
	}
	return links
}

// duplicateLinks reports links sharing a (facility_id, date_id) key. The
// later occurrence is the duplicate.
func duplicateLinks(links []models.FacilityCustomerGroupLink) []string {
	seen := make(map[string]bool, len(links))
	var dup []string
	for _, l := range links {
		key := fmt.Sprintf("facility_id=%d date_id=%s", l.FacilityID, l.DateID.Format("2006-01-02"))
		if seen[key] {
			dup = append(dup, key)
		}
		seen[key] = true
	}
	return dup
}

// partition splits the produced links into inserts and updates by probing the
// existing links on (facility_id, date_id), with the same hash join the
// import path uses.
func (e *Engine) partition(links []models.FacilityCustomerGroupLink, existing []models.FacilityCustomerGroupLink, r *Report) *errs.TariffError {
	mapping := linkBatch(existing, models.ColCustomerGroupID)
	idx, err := keymap.BuildIndex(mapping,
		[]string{models.ColFacilityID, models.ColDateID}, models.ColCustomerGroupID)
	if err != nil {
		if te, ok := errs.AsTariffError(err); ok {
			return te
		}
		return errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "link partition failed")
	}

	probe := linkBatch(links, models.ColCustomerGroupID)
	for row := 0; row < probe.NumRows(); row++ {
		l := links[row]
		key, err := probe.Key(row, []string{models.ColFacilityID, models.ColDateID})
		if err != nil {
			return errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, "link partition failed")
		}
		if _, exists := idx.Lookup(key); exists {
			r.Update = append(r.Update, l)
		} else {
			r.Insert = append(r.Insert, l)
		}
	}
	return nil
}

// linkBatch renders links as a batch so the keymap index can consume them.
func linkBatch(links []models.FacilityCustomerGroupLink, surrogate string) *tabular.Batch {
	b := tabular.NewBatch(
		tabular.Column{Name: surrogate, Type: tabular.KindInt},
		tabular.Column{Name: models.ColFacilityID, Type: tabular.KindInt},
		tabular.Column{Name: models.ColDateID, Type: tabular.KindDate},
	)
	for _, l := range links {
		b.MustAppendRow(tabular.Int(l.CustomerGroupID), tabular.Int(l.FacilityID), tabular.Date(l.DateID))
	}
	return b
}

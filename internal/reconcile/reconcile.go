package reconcile

import (
	"fmt"

	"tariffant/internal/keymap"
	"tariffant/internal/tabular"
	"tariffant/internal/validate"
	errs "tariffant/pkg/errors"
	"tariffant/pkg/logger"
)

// LookupPlan resolves a code column in the import batch to its surrogate key
// against a reference table. Required lookups reject the row when no match
// exists; optional lookups leave the surrogate null.
type LookupPlan struct {
	// Table names the reference table the lookup batch was loaded from.
	Table string
	// ProbeColumns are the import columns matched against the table key.
	ProbeColumns []string
	// TableKeyColumns are the natural-key columns of the reference table.
	TableKeyColumns []string
	// SurrogateColumn is the resolved key column added to the batch.
	SurrogateColumn string
	Required        bool
	// RejectMessage renders the operator message for n rows this lookup
	// failed to resolve. Nil falls back to the plan-level message.
	RejectMessage func(n int) string
}

// Plan describes how one entity's import batch is classified against the
// current database state.
type Plan struct {
	Contract tabular.Contract

	// MappingTable names the table the primary mapping was loaded from.
	MappingTable string
	// MappingKeyColumns form the natural key in the mapping batch.
	MappingKeyColumns []string
	// ProbeColumns are the columns of the resolved import batch matched
	// against the mapping key. They may include surrogates produced by
	// lookups, which is why lookups run first.
	ProbeColumns []string
	// SurrogateColumn holds the entity's primary key after the probe;
	// null means the row is new.
	SurrogateColumn string

	Lookups []LookupPlan

	// RejectMessage renders the operator message for n rejected rows.
	RejectMessage func(n int) string
}

// Tables carries the database-side batches a plan joins against.
type Tables struct {
	// Mapping holds the natural-key to surrogate-key rows of the target
	// entity. May be empty on a fresh database.
	Mapping *tabular.Batch
	// Lookups holds reference batches indexed by LookupPlan.Table.
	Lookups map[string]*tabular.Batch
}

// Result is the classified import batch. Insert rows carry no surrogate key,
// update rows do, reject rows failed a required lookup. The three sets
// partition the validated input and each is ordered by the entity's natural
// key.
type Result struct {
	Insert  *tabular.Batch
	Update  *tabular.Batch
	Reject  *tabular.Batch
	Outcome Outcome
}

func failed(err *errs.TariffError) *Result {
	return &Result{Outcome: Failure(err)}
}

func coerce(err error) *errs.TariffError {
	if te, ok := errs.AsTariffError(err); ok {
		return te
	}
	return errs.Wrap(err, errs.CategoryInternal, errs.CodeUnexpectedError, err.Error())
}

// Run validates the import batch and classifies every row as insert, update
// or reject. It never touches storage: callers load the mapping and lookup
// batches, and persist the returned sets, inside their own transaction.
func Run(imp *tabular.Batch, tables Tables, plan Plan, cfg *validate.Config) *Result {
	log := logger.GetGlobalLogger().WithComponent("reconcile").WithField("entity", plan.Contract.Entity)

	if err := validate.Batch(imp, plan.Contract, cfg); err != nil {
		log.WithError(err).Warn("import batch failed validation")
		return failed(coerce(err))
	}

	primaryIdx, err := keymap.BuildIndex(tables.Mapping, plan.MappingKeyColumns, plan.SurrogateColumn)
	if err != nil {
		return failed(coerce(err))
	}
	primary := keymap.Join{ProbeColumns: plan.ProbeColumns, Index: primaryIdx}

	lookups := make([]keymap.Join, 0, len(plan.Lookups))
	for _, lp := range plan.Lookups {
		table, ok := tables.Lookups[lp.Table]
		if !ok {
			return failed(errs.New(errs.CategoryInternal, errs.CodeUnexpectedError,
				fmt.Sprintf("no lookup batch loaded for table %q", lp.Table)))
		}
		idx, err := keymap.BuildIndex(table, lp.TableKeyColumns, lp.SurrogateColumn)
		if err != nil {
			return failed(coerce(err))
		}
		lookups = append(lookups, keymap.Join{ProbeColumns: lp.ProbeColumns, Index: idx})
	}

	mapped, err := keymap.MapKeys(imp, primary, lookups, plan.Contract.KeyColumns)
	if err != nil {
		return failed(coerce(err))
	}

	accepted, reject, err := splitRejects(mapped, plan)
	if err != nil {
		return failed(coerce(err))
	}
	insert := accepted.Filter(func(row int) bool {
		v, _ := accepted.Value(row, plan.SurrogateColumn)
		return v.IsNull()
	})
	update := accepted.Filter(func(row int) bool {
		v, _ := accepted.Value(row, plan.SurrogateColumn)
		return !v.IsNull()
	})

	insert, err = insert.Exclude(append([]string{plan.SurrogateColumn}, lookupProbeColumns(plan)...)...)
	if err != nil {
		return failed(coerce(err))
	}
	update, err = update.Exclude(lookupProbeColumns(plan)...)
	if err != nil {
		return failed(coerce(err))
	}

	res := &Result{Insert: insert, Update: update, Reject: reject}
	if reject.NumRows() > 0 {
		msg, keys := rejectReport(reject, plan)
		err := errs.New(errs.CategoryReferential, errs.CodeUnresolvedReference, msg).
			WithContext("keys", keys).
			WithSuggestion("Import the referenced entities first, then retry.")
		log.WithField("rejected", reject.NumRows()).Warn("rows failed reference resolution")
		res.Outcome = Failure(err)
		return res
	}

	res.Outcome = Success(fmt.Sprintf("Successfully imported %d new %s and updated %d existing %s!",
		insert.NumRows(), plan.Contract.Plural, update.NumRows(), plan.Contract.Plural))
	log.WithFields(logger.Fields{"insert": insert.NumRows(), "update": update.NumRows()}).
		Info("import batch classified")
	return res
}

// splitRejects separates rows whose required lookup surrogate is null. The
// reject batch is projected down to the columns an operator needs to locate
// the offending source rows.
func splitRejects(mapped *tabular.Batch, plan Plan) (accepted, reject *tabular.Batch, err error) {
	var required []string
	for _, lp := range plan.Lookups {
		if lp.Required {
			required = append(required, lp.SurrogateColumn)
		}
	}
	unresolved := func(row int) bool {
		for _, col := range required {
			if v, _ := mapped.Value(row, col); v.IsNull() {
				return true
			}
		}
		return false
	}
	accepted = mapped.Filter(func(row int) bool { return !unresolved(row) })
	rejected := mapped.Filter(unresolved)
	reject, err = rejected.Project(rejectColumns(mapped, plan)...)
	if err != nil {
		return nil, nil, err
	}
	return accepted, reject, nil
}

// rejectColumns picks the surrogate, display and required-lookup columns
// present in the mapped batch, without duplicates.
func rejectColumns(mapped *tabular.Batch, plan Plan) []string {
	cols := make([]string, 0, 8)
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] && mapped.HasColumn(name) {
			seen[name] = true
			cols = append(cols, name)
		}
	}
	add(plan.SurrogateColumn)
	for _, c := range plan.Contract.DisplayColumns {
		add(c)
	}
	for _, lp := range plan.Lookups {
		if !lp.Required {
			continue
		}
		add(lp.SurrogateColumn)
		for _, c := range lp.ProbeColumns {
			add(c)
		}
	}
	return cols
}

// rejectReport picks the operator message and offending keys for a non-empty
// reject batch. Lookups with their own message are reported one at a time, in
// plan order, so an unknown EAN is named before an invalid customer type.
func rejectReport(reject *tabular.Batch, plan Plan) (string, []string) {
	for _, lp := range plan.Lookups {
		if !lp.Required || lp.RejectMessage == nil {
			continue
		}
		var keys []string
		for i := 0; i < reject.NumRows(); i++ {
			if v, _ := reject.Value(i, lp.SurrogateColumn); v.IsNull() {
				keys = append(keys, reject.DisplayKey(i, plan.Contract.DisplayColumns))
			}
		}
		if len(keys) > 0 {
			return lp.RejectMessage(len(keys)), keys
		}
	}
	keys := make([]string, 0, reject.NumRows())
	for i := 0; i < reject.NumRows(); i++ {
		keys = append(keys, reject.DisplayKey(i, plan.Contract.DisplayColumns))
	}
	return plan.RejectMessage(reject.NumRows()), keys
}

func lookupProbeColumns(plan Plan) []string {
	cols := make([]string, 0, len(plan.Lookups))
	for _, lp := range plan.Lookups {
		cols = append(cols, lp.ProbeColumns...)
	}
	return cols
}

// Package tablefmt is the concrete columnar-format collaborator the slot
// driver's Encoder interface defers to (spec §1 Non-goals: "file-format
// choice of the persisted tables"). It encodes parameter tables and
// likelihood records as CSV, grounded on the pack's encoding/csv usage
// (ja7ad-consumption's report writer) — no third-party CSV/dataframe
// library turned up anywhere in the retrieved examples, so this one
// concern stays on the standard library.
package tablefmt

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"github.com/hopkinsidd/flepimop-inference/internal/mcmcslot"
	"github.com/hopkinsidd/flepimop-inference/internal/paramtable"
)

// CSVEncoder implements mcmcslot.Encoder by writing every parameter-table
// kind into a single CSV whose "table" column names each row's kind, plus a
// one-row CSV for llik records.
type CSVEncoder struct{}

// EncodeSet writes every row kind in s to one CSV blob, in a fixed
// table order so byte-diffing two iterations' outputs stays meaningful.
func (CSVEncoder) EncodeSet(s *paramtable.Set) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"table", "subpop", "name", "value", "date", "amount"}); err != nil {
		return nil, err
	}
	for _, r := range s.Seeding {
		if err := w.Write([]string{"seeding", r.Subpop, "", "", r.Date.Format("2006-01-02"), strconv.FormatFloat(r.Amount, 'g', -1, 64)}); err != nil {
			return nil, err
		}
	}
	for _, r := range s.TransmissionModifiers {
		if err := w.Write([]string{"seir_modifier", r.Subpop, r.ModifierName, strconv.FormatFloat(r.Value, 'g', -1, 64), "", ""}); err != nil {
			return nil, err
		}
	}
	for _, r := range s.OutcomeModifiers {
		if err := w.Write([]string{"outcome_modifier", r.Subpop, r.ModifierName, strconv.FormatFloat(r.Value, 'g', -1, 64), "", ""}); err != nil {
			return nil, err
		}
	}
	for _, r := range s.OutcomeParams {
		if err := w.Write([]string{"outcome_param", r.Subpop, r.Outcome + "/" + r.Quantity, strconv.FormatFloat(r.Value, 'g', -1, 64), "", ""}); err != nil {
			return nil, err
		}
	}
	for _, r := range s.InitialConditions {
		if err := w.Write([]string{"initial_condition", r.Subpop, r.Compartment, strconv.FormatFloat(r.Value, 'g', -1, 64), "", ""}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeLlik writes one llik record as a header row plus one row per
// subpop, with the global total as a trailing row.
func (CSVEncoder) EncodeLlik(r mcmcslot.LlikRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"scope", "subpop", "log_likelihood", "accept", "accept_prob", "accept_avg"}); err != nil {
		return nil, err
	}

	subpops := make([]string, 0, len(r.PerSubpop))
	for subpop := range r.PerSubpop {
		subpops = append(subpops, subpop)
	}
	sort.Strings(subpops)

	for _, subpop := range subpops {
		if err := w.Write([]string{
			string(r.Scope), subpop,
			strconv.FormatFloat(r.PerSubpop[subpop], 'g', -1, 64),
			strconv.FormatBool(r.Accept),
			strconv.FormatFloat(r.AcceptProb, 'g', -1, 64),
			strconv.FormatFloat(r.AcceptAvg, 'g', -1, 64),
		}); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{
		string(r.Scope), "__global__",
		strconv.FormatFloat(r.GlobalLogLik, 'g', -1, 64),
		strconv.FormatBool(r.Accept),
		strconv.FormatFloat(r.AcceptProb, 'g', -1, 64),
		strconv.FormatFloat(r.AcceptAvg, 'g', -1, 64),
	}); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

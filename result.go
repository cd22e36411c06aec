// Copyright (C) 2019-2025, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package meshtrust

import (
	"fmt"
	"strconv"
	"strings"
)

type AssumptionID uint8

const (
	A1 AssumptionID = iota + 1
	A2
	A3
	A4
	A5
	A6
)

// Assumptions lists every assumption in reporting order.
var Assumptions = []AssumptionID{A1, A2, A3, A4, A5, A6}

func (id AssumptionID) String() string {
	return fmt.Sprintf("A%d", uint8(id))
}

// ParseAssumptionID accepts "A1" through "A6", in either case.
func ParseAssumptionID(s string) (AssumptionID, error) {
	if len(s) == 2 && (s[0] == 'A' || s[0] == 'a') {
		if n, err := strconv.Atoi(s[1:]); err == nil && n >= int(A1) && n <= int(A6) {
			return AssumptionID(n), nil
		}
	}
	return 0, configErrorf("assumption", "unknown assumption %q", s)
}

// Description is a one line statement of the property.
func (id AssumptionID) Description() string {
	switch id {
	case A1:
		return "every trust set member is a network node"
	case A2:
		return "every trust set has an honest member"
	case A3:
		return "some trust set is fully honest"
	case A4:
		return "every honest message is attested by a fully honest trust set member"
	case A5:
		return "every ordered pair of trust sets is bridged"
	case A6:
		return "every malicious message is attested by an honest member of each trust set"
	default:
		return "unknown assumption"
	}
}

type Outcome uint8

const (
	// Holds means the check ran to completion and found no counterexample.
	Holds Outcome = iota
	// Violated means the check found a counterexample.
	Violated
	// PreconditionUnmet means the check could not be evaluated because an
	// assumption it depends on does not hold.
	PreconditionUnmet
)

func (o Outcome) String() string {
	switch o {
	case Holds:
		return "holds"
	case Violated:
		return "violated"
	case PreconditionUnmet:
		return "precondition unmet"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// Diagnostic names the structures that make a check fail.
type Diagnostic interface {
	fmt.Stringer
	isDiagnostic()
}

type Result struct {
	ID         AssumptionID
	Outcome    Outcome
	Diagnostic Diagnostic
	// Examined counts the items the check inspected before returning.
	Examined int
}

func (r Result) Holds() bool {
	return r.Outcome == Holds
}

func (r Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s): %s", r.ID, r.ID.Description(), r.Outcome)
	if r.Diagnostic != nil {
		fmt.Fprintf(&sb, "\n    %s", r.Diagnostic)
	}
	return sb.String()
}

func holds(id AssumptionID, examined int) Result {
	return Result{ID: id, Outcome: Holds, Examined: examined}
}

func violated(id AssumptionID, examined int, d Diagnostic) Result {
	return Result{ID: id, Outcome: Violated, Diagnostic: d, Examined: examined}
}

type MembershipViolation struct {
	TrustSet TrustSet
	Missing  NodeIDs
}

type MaliciousTrustSetViolation struct {
	TrustSet  TrustSet
	Malicious NodeIDs
}

type NoHonestTrustSetViolation struct {
	Malicious NodeIDs
}

type PreconditionDiagnostic struct {
	Requires AssumptionID
	Reason   string
}

type HonestAttestationViolation struct {
	Node        NodeID
	Message     TxRecord
	FullyHonest NodeIDs
	Malicious   NodeIDs
}

type BridgeViolation struct {
	C1, C2 TrustSet
	Mode   BridgeMode
}

type MaliciousAttestationViolation struct {
	Node     NodeID
	Message  TxRecord
	TrustSet TrustSet
}

func (d *MembershipViolation) String() string {
	return fmt.Sprintf("nodes %s in trust set %s are not in the simulation", d.Missing, d.TrustSet)
}

func (d *MaliciousTrustSetViolation) String() string {
	return fmt.Sprintf("trust set %s has no honest nodes (malicious nodes: %s)", d.TrustSet, d.Malicious)
}

func (d *NoHonestTrustSetViolation) String() string {
	return fmt.Sprintf("no trust set is disjoint from the malicious nodes %s", d.Malicious)
}

func (d *PreconditionDiagnostic) String() string {
	return fmt.Sprintf("requires %s: %s", d.Requires, d.Reason)
}

func (d *HonestAttestationViolation) String() string {
	return fmt.Sprintf("honest node %d received no attestation from a fully honest node for message %d (attesters: %s, fully honest nodes: %s)",
		d.Node, d.Message.MessageNum, d.Message.Attesters(), d.FullyHonest)
}

func (d *BridgeViolation) String() string {
	return fmt.Sprintf("no %s bridge from trust set %s into trust set %s", d.Mode, d.C1, d.C2)
}

func (d *MaliciousAttestationViolation) String() string {
	return fmt.Sprintf("malicious node %d received no attestation from an honest member of trust set %s for message %d (attesters: %s)",
		d.Node, d.TrustSet, d.Message.MessageNum, d.Message.Attesters())
}

func (*MembershipViolation) isDiagnostic()           {}
func (*MaliciousTrustSetViolation) isDiagnostic()    {}
func (*NoHonestTrustSetViolation) isDiagnostic()     {}
func (*PreconditionDiagnostic) isDiagnostic()        {}
func (*HonestAttestationViolation) isDiagnostic()    {}
func (*BridgeViolation) isDiagnostic()               {}
func (*MaliciousAttestationViolation) isDiagnostic() {}

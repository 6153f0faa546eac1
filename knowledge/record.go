// Package knowledge holds the curated campus corpora: the record variants,
// their JSON loading and schema validation, and the file watcher that
// signals when a corpus changed on disk.
package knowledge

import (
	"fmt"
	"strings"
)

// Kind tags which variant a Record carries.
type Kind int

const (
	KindFAQ Kind = iota
	KindDepartment
	KindProcedure
)

func (k Kind) String() string {
	switch k {
	case KindFAQ:
		return "faq"
	case KindDepartment:
		return "department"
	case KindProcedure:
		return "procedure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FAQ is a question/answer pair.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Department is a campus office and how to reach it.
type Department struct {
	Department string `json:"department"`
	Contact    string `json:"contact"`
	Info       string `json:"info"`
}

// Procedure is a titled, ordered list of steps.
type Procedure struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// Record is a tagged variant over the three corpus shapes. Exactly one of
// the pointers is set, matching Kind. Records are immutable once loaded.
type Record struct {
	Kind       Kind
	FAQ        *FAQ
	Department *Department
	Procedure  *Procedure
}

func NewFAQ(question, answer string) Record {
	return Record{Kind: KindFAQ, FAQ: &FAQ{Question: question, Answer: answer}}
}

func NewDepartment(name, contact, info string) Record {
	return Record{Kind: KindDepartment, Department: &Department{Department: name, Contact: contact, Info: info}}
}

func NewProcedure(title, description string, steps ...string) Record {
	copied := make([]string, len(steps))
	copy(copied, steps)
	return Record{Kind: KindProcedure, Procedure: &Procedure{Title: title, Description: description, Steps: copied}}
}

// Valid reports whether the variant pointer agrees with Kind.
func (r Record) Valid() bool {
	switch r.Kind {
	case KindFAQ:
		return r.FAQ != nil && r.Department == nil && r.Procedure == nil
	case KindDepartment:
		return r.Department != nil && r.FAQ == nil && r.Procedure == nil
	case KindProcedure:
		return r.Procedure != nil && r.FAQ == nil && r.Department == nil
	default:
		return false
	}
}

// StepsText joins procedure steps with single spaces; empty for other kinds.
func (r Record) StepsText() string {
	if r.Kind != KindProcedure || r.Procedure == nil {
		return ""
	}
	return strings.Join(r.Procedure.Steps, " ")
}

// Project returns the raw composite text of a record: every field joined
// by a single space in declaration order. Callers normalize the result.
// It panics on a record whose variant does not match its Kind.
func Project(r Record) string {
	if !r.Valid() {
		panic(fmt.Sprintf("knowledge: malformed %s record", r.Kind))
	}
	switch r.Kind {
	case KindFAQ:
		return r.FAQ.Question + " " + r.FAQ.Answer
	case KindDepartment:
		d := r.Department
		return d.Department + " " + d.Contact + " " + d.Info
	case KindProcedure:
		p := r.Procedure
		return p.Title + " " + p.Description + " " + r.StepsText()
	}
	panic("unreachable")
}

// Corpus is a named, ordered collection of records of one kind.
type Corpus struct {
	Name    string
	Kind    Kind
	Records []Record
}

// Head returns up to n records in load order.
func (c Corpus) Head(n int) []Record {
	if n <= 0 {
		return nil
	}
	if n > len(c.Records) {
		n = len(c.Records)
	}
	return c.Records[:n]
}

// Set bundles the three corpora the assistant answers from.
type Set struct {
	FAQs        Corpus
	Departments Corpus
	Procedures  Corpus
}

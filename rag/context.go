package rag

import (
	"fmt"
	"strings"

	"campus-assistant/knowledge"
)

const (
	faqHeader        = "Relevant FAQs which might help:"
	departmentHeader = "Department Contacts which might help:"
	procedureHeader  = "Procedures which might help:"

	noFAQs        = "No relevant FAQs found."
	noDepartments = "No relevant department contacts found."
	noProcedures  = "No relevant procedure details found."
)

// Context is the grounding block handed to the generation service. Each
// section is always present and ends with a blank line.
type Context struct {
	FAQs         string
	Departments  string
	Procedures   string
	UsedFallback bool
}

// String concatenates the sections in their fixed order.
func (c Context) String() string {
	return c.FAQs + c.Departments + c.Procedures
}

// Assemble renders the three result lists. When faqs is empty the
// fallbackFAQs are rendered in its place; departments and procedures have
// no fallback and render a placeholder instead.
func Assemble(faqs, departments, procedures, fallbackFAQs []knowledge.Record) Context {
	var ctx Context
	if len(faqs) == 0 && len(fallbackFAQs) > 0 {
		faqs = fallbackFAQs
		ctx.UsedFallback = true
	}
	ctx.FAQs = section(faqHeader, noFAQs, faqs, renderFAQ)
	ctx.Departments = section(departmentHeader, noDepartments, departments, renderDepartment)
	ctx.Procedures = section(procedureHeader, noProcedures, procedures, renderProcedure)
	return ctx
}

func section(header, placeholder string, records []knowledge.Record, render func(knowledge.Record) string) string {
	if len(records) == 0 {
		return placeholder + "\n\n"
	}
	entries := make([]string, len(records))
	for i, r := range records {
		entries[i] = render(r)
	}
	return header + "\n" + strings.Join(entries, "\n\n") + "\n\n"
}

func renderFAQ(r knowledge.Record) string {
	return fmt.Sprintf("Q: %s\nA: %s", r.FAQ.Question, r.FAQ.Answer)
}

func renderDepartment(r knowledge.Record) string {
	d := r.Department
	return fmt.Sprintf("Department: %s\nContact: %s\nInfo: %s", d.Department, d.Contact, d.Info)
}

func renderProcedure(r knowledge.Record) string {
	p := r.Procedure
	steps := make([]string, len(p.Steps))
	for i, step := range p.Steps {
		steps[i] = fmt.Sprintf("  %d. %s", i+1, step)
	}
	return fmt.Sprintf("Title: %s\nDescription: %s\nSteps:\n%s", p.Title, p.Description, strings.Join(steps, "\n"))
}

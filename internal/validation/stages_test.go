package validation

import (
	"bytes"
	"testing"
)

func TestSniff(t *testing.T) {
	cases := map[string]struct {
		data []byte
		want string
	}{
		"pdf":        {[]byte(minimalPDF), MediaTypePDF},
		"text":       {[]byte("hello world"), MediaTypeText},
		"utf8 text":  {[]byte("héllo wörld, ça va"), MediaTypeText},
		"shell":      {[]byte("#!/bin/bash\nrm -rf /tmp/x\n"), MediaTypeText},
		"odt":        {odtHeader(), MediaTypeODT},
		"docx":       {docxArchive(t), MediaTypeDocx},
		"ole as doc": {oleHeader(), MediaTypeDoc},
		"php":        {[]byte("<?php echo 1; ?>"), MediaTypeText},
		"html":       {[]byte("<!DOCTYPE html><html><body>hi</body></html>"), "text/html"},
		"svg":        {[]byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), "image/svg+xml"},
		"empty":      {nil, MediaTypeUnknown},
		"pdf prefix": {append([]byte(minimalPDF), bytes.Repeat([]byte{0}, 2*SniffLimit)...), MediaTypePDF},
	}
	for name, tc := range cases {
		if got := Sniff(tc.data, DefaultAllowList); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", name, tc.want, got)
		}
	}
}

func TestSniffKeepsScriptTypeWithoutText(t *testing.T) {
	// Without text/plain in the list a script keeps its own type.
	allow := DefaultAllowList.Restrict([]string{".pdf"})
	got := Sniff([]byte("#!/bin/sh\necho hi"), allow)
	if allow.Allowed(got) {
		t.Fatalf("expected a disallowed type, got %s", got)
	}
}

func TestSniffCompoundDocumentWithoutWord(t *testing.T) {
	allow := DefaultAllowList.Restrict([]string{".pdf", ".txt"})
	if got := Sniff(oleHeader(), allow); got == MediaTypeDoc || allow.Allowed(got) {
		t.Fatalf("compound document must not map to msword when .doc is not allowed, got %s", got)
	}
	v := New(0, allow)
	if got := v.Validate(Candidate{Filename: "letter.doc", Data: oleHeader()}); got.Reason() != ReasonDisallowedType {
		t.Fatalf("expected disallowed_type, got %s", got)
	}
}

func TestMatchExtension(t *testing.T) {
	cases := []struct {
		filename  string
		mediaType string
		want      bool
	}{
		{"report.pdf", MediaTypePDF, true},
		{"REPORT.PDF", MediaTypePDF, true},
		{"archive.tar.pdf", MediaTypePDF, true},
		{"report.pdf.txt", MediaTypePDF, false},
		{"letter.docx", MediaTypeDocx, true},
		{"letter.doc", MediaTypeDocx, false},
		{"letter.doc", MediaTypeDoc, true},
		{"report", MediaTypePDF, false},
		{"", MediaTypePDF, false},
		{"image.png", "image/png", false},
	}
	for _, tc := range cases {
		if got := MatchExtension(tc.filename, tc.mediaType, DefaultAllowList); got != tc.want {
			t.Fatalf("MatchExtension(%q, %q) = %v, want %v", tc.filename, tc.mediaType, got, tc.want)
		}
	}
}

func TestScanSignatures(t *testing.T) {
	if ScanSignatures([]byte("an ordinary paragraph of text")) {
		t.Fatalf("clean content flagged")
	}
	for _, sig := range signatures {
		data := append([]byte("prefix "), sig...)
		if !ScanSignatures(data) {
			t.Fatalf("signature %q not detected", sig)
		}
	}
	edge := append(bytes.Repeat([]byte{'a'}, ScanLimit-5), "<?php"...)
	if !ScanSignatures(edge) {
		t.Fatalf("signature ending exactly at the scan limit not detected")
	}
	past := append(bytes.Repeat([]byte{'a'}, ScanLimit-4), "<?php"...)
	if ScanSignatures(past) {
		t.Fatalf("signature crossing the scan limit detected")
	}
}

func TestWithinLimit(t *testing.T) {
	if !WithinLimit(10, 10) || WithinLimit(11, 10) || !WithinLimit(0, 10) {
		t.Fatalf("WithinLimit must fail only when size exceeds max")
	}
}

func TestRestrict(t *testing.T) {
	got := DefaultAllowList.Restrict([]string{"PDF", " .txt ", "rtf", ""})
	if len(got) != 2 || !got.Allowed(MediaTypePDF) || !got.Allowed(MediaTypeText) {
		t.Fatalf("unexpected restricted list %v", got)
	}
	if len(DefaultAllowList) != 5 {
		t.Fatalf("Restrict must not modify the receiver")
	}
}

func TestVerdictInvariant(t *testing.T) {
	a := accept(MediaTypePDF)
	r := reject(ReasonOversized)
	if !a.Accepted() || a.Reason() != "" || a.MediaType() == "" {
		t.Fatalf("bad accepted verdict %+v", a)
	}
	if r.Accepted() || r.Reason() == "" || r.MediaType() != "" {
		t.Fatalf("bad rejected verdict %+v", r)
	}
	if ReasonOversized.Message() == string(ReasonOversized) {
		t.Fatalf("reason has no message")
	}
}

// Package pdfmerge concatenates pdf files, used to assemble a permit application from
// the documents pulled off a lead.
package pdfmerge

import (
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNoInput = errors.New("pdfmerge: no input files")

// Merge writes the pages of every input, in order, to `outFile`.
func Merge(outFile string, inFiles []string) error {
	if len(inFiles) == 0 {
		return ErrNoInput
	}
	if outFile == "" {
		return errors.New("pdfmerge: no output file")
	}

	conf := model.NewDefaultConfiguration()
	err := api.MergeCreateFile(inFiles, outFile, false, conf)
	if err != nil {
		return fmt.Errorf("pdfmerge: %w", err)
	}
	return nil
}

func PageCount(file string) (int, error) {
	count, err := api.PageCountFile(file)
	if err != nil {
		return 0, fmt.Errorf("pdfmerge: %w", err)
	}
	return count, nil
}

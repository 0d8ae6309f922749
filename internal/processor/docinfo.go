package processor

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/aliskhannn/pdf-processor/internal/model"
)

// readDocInfo reads the document information dictionary. Missing
// entries come back as nil pointers.
func readDocInfo(path string) (model.Metadata, error) {
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("%w: read: %v", model.ErrTransformation, err)
	}

	var md model.Metadata
	if pdfCtx.Info == nil {
		return md, nil
	}

	d, err := pdfCtx.DereferenceDict(*pdfCtx.Info)
	if err != nil {
		return model.Metadata{}, fmt.Errorf("%w: info dict: %v", model.ErrTransformation, err)
	}

	md.Title = infoString(pdfCtx, d, "Title")
	md.Author = infoString(pdfCtx, d, "Author")
	md.Subject = infoString(pdfCtx, d, "Subject")
	md.Keywords = infoString(pdfCtx, d, "Keywords")
	md.Creator = infoString(pdfCtx, d, "Creator")

	return md, nil
}

// writeDocInfo merges the given metadata into the document information
// dictionary and writes the result to out. Nil fields stay untouched.
func writeDocInfo(in, out string, md model.Metadata) error {
	pdfCtx, err := api.ReadContextFile(in)
	if err != nil {
		return fmt.Errorf("%w: read: %v", model.ErrTransformation, err)
	}

	var d types.Dict
	if pdfCtx.Info != nil {
		d, err = pdfCtx.DereferenceDict(*pdfCtx.Info)
		if err != nil {
			return fmt.Errorf("%w: info dict: %v", model.ErrTransformation, err)
		}
	} else {
		d = types.NewDict()
		ir, err := pdfCtx.IndRefForNewObject(d)
		if err != nil {
			return fmt.Errorf("%w: info dict: %v", model.ErrTransformation, err)
		}
		pdfCtx.Info = ir
	}

	for key, val := range map[string]*string{
		"Title":    md.Title,
		"Author":   md.Author,
		"Subject":  md.Subject,
		"Keywords": md.Keywords,
		"Creator":  md.Creator,
	} {
		if val == nil {
			continue
		}
		escaped, err := types.Escape(*val)
		if err != nil {
			return fmt.Errorf("%w: escape %s: %v", model.ErrTransformation, key, err)
		}
		d[key] = types.StringLiteral(*escaped)
	}

	if err := api.WriteContextFile(pdfCtx, out); err != nil {
		return fmt.Errorf("%w: write: %v", model.ErrTransformation, err)
	}

	return nil
}

func infoString(pdfCtx *pdfmodel.Context, d types.Dict, key string) *string {
	obj, ok := d.Find(key)
	if !ok {
		return nil
	}

	obj, err := pdfCtx.Dereference(obj)
	if err != nil {
		return nil
	}

	var s string
	switch o := obj.(type) {
	case types.StringLiteral:
		s, err = types.StringLiteralToString(o)
	case types.HexLiteral:
		s, err = types.HexLiteralToString(o)
	default:
		return nil
	}
	if err != nil {
		return nil
	}

	return &s
}

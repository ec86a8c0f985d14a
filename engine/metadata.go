package engine

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/tsawler/pdfform/core"
	"github.com/tsawler/pdfform/reader"
	"seehuhn.de/go/xmp"
)

// Metadata reads the information dictionary and the catalog's XMP packet.
// A malformed XMP packet is logged and leaves XMP empty.
func (d *pdfDocument) Metadata(ctx context.Context) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta := &Metadata{
		Info: make(map[string]string),
		XMP:  make(Properties),
	}

	info, err := d.reader.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read document info: %w", err)
	}
	for key, val := range info {
		if s, ok := d.infoString(val); ok {
			meta.Info[key] = s
		}
	}

	data, err := d.reader.Metadata()
	if err != nil {
		d.engine.log.Warn().Err(err).Msg("failed to read XMP metadata")
		return meta, nil
	}
	if len(data) > 0 {
		if err := readXMP(data, meta.XMP); err != nil {
			d.engine.log.Warn().Err(err).Msg("failed to parse XMP metadata")
		}
	}
	return meta, nil
}

func (d *pdfDocument) infoString(obj core.Object) (string, bool) {
	v, err := d.reader.Resolve(obj)
	if err != nil {
		return "", false
	}
	switch v := v.(type) {
	case core.String:
		return reader.DecodeTextString(v), true
	case core.Name:
		return string(v), true
	case core.Int, core.Real, core.Bool:
		return v.String(), true
	}
	return "", false
}

// readXMP copies the Dublin Core title and description into props.
func readXMP(data []byte, props Properties) error {
	packet, err := xmp.Read(bytes.NewReader(data))
	if err != nil {
		return err
	}
	dc := &xmp.DublinCore{}
	packet.Get(dc)
	if s := localizedText(dc.Title); s != "" {
		props["dc:title"] = s
	}
	if s := localizedText(dc.Description); s != "" {
		props["dc:description"] = s
	}
	return nil
}

// localizedText returns the x-default alternative, or the first language
// alternative in tag order when there is no default.
func localizedText(l xmp.Localized) string {
	if l.Default.V != "" {
		return l.Default.V
	}
	keys := make([]string, 0, len(l.V))
	vals := make(map[string]xmp.Text, len(l.V))
	for tag, v := range l.V {
		k := tag.String()
		keys = append(keys, k)
		vals[k] = v
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := vals[k].V; s != "" {
			return s
		}
	}
	return ""
}

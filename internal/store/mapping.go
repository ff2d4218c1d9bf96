package store

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/pdetsolar/footprints/internal/geo"
)

// boundarySource names the dataset the boundary file comes from.
const boundarySource = "DANE MGN 2024"

// Property aliases for the boundary file. MGN exports spell their columns
// differently between revisions; both forms show up in the wild.
var (
	codeAliases       = []string{"mpio_cdpmp", "Código DANE Municipio", "codigo_dane"}
	nameAliases       = []string{"mpio_cnmbr", "Municipio", "nombre"}
	departmentAliases = []string{"dpto_cnmbr", "Departamento", "departamento"}
	deptCodeAliases   = []string{"dpto_ccdgo", "Código DANE Departamento", "codigo_departamento"}
	subregionAliases  = []string{"Subregión PDET", "subregion_pdet"}
)

// BoundaryFromFeature maps one boundary feature to its document. seq is the
// feature's position in the file; it decides ties when boundaries overlap.
func BoundaryFromFeature(seq int, f *geo.Feature) (MunicipalityDoc, error) {
	code := zeroPad(stringProp(f.Properties, codeAliases...), 5)
	if code == "" {
		return MunicipalityDoc{}, errors.New("missing municipality code")
	}

	g, err := GeometryFromJSON(f.Geometry)
	if err != nil {
		return MunicipalityDoc{}, err
	}

	return MunicipalityDoc{
		CodigoDane:         code,
		Nombre:             stringProp(f.Properties, nameAliases...),
		Departamento:       stringProp(f.Properties, departmentAliases...),
		CodigoDepartamento: zeroPad(stringProp(f.Properties, deptCodeAliases...), 2),
		SubregionPDET:      stringProp(f.Properties, subregionAliases...),
		Geometry:           g,
		Seq:                seq,
		IsPDET:             true,
		Metadata: MunicipalityMetadata{
			LoadDate: time.Now().UTC(),
			Source:   boundarySource,
			AreaKM2:  floatProp(f.Properties, "mpio_narea"),
			Year:     int(floatProp(f.Properties, "mpio_nano")),
		},
	}, nil
}

// BuildingFromFeature maps one enriched footprint feature to its document.
// Enrichment properties move to the top level where the validator expects
// them; a missing area falls back to zero.
func BuildingFromFeature(f *geo.Feature, sourceLabel string, meta BuildingMetadata) (BuildingDoc, error) {
	g, err := GeometryFromJSON(f.Geometry)
	if err != nil {
		return BuildingDoc{}, err
	}

	return BuildingDoc{
		Geometry:         g,
		Source:           sourceLabel,
		AreaM2:           floatProp(f.Properties, "area_m2"),
		MunicipalityCode: stringProp(f.Properties, "municipality_code"),
		MunicipalityName: stringProp(f.Properties, "municipality_name"),
		Department:       stringProp(f.Properties, "department"),
		Confidence:       floatProp(f.Properties, "confidence"),
		FullPlusCode:     stringProp(f.Properties, "full_plus_code"),
		Metadata:         meta,
	}, nil
}

// stringProp returns the first non-empty property among the given names.
// Numeric values are formatted, some exports carry codes as numbers.
func stringProp(props map[string]interface{}, names ...string) string {
	for _, n := range names {
		switch v := props[n].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}

	return ""
}

// floatProp returns the first numeric property among the given names.
func floatProp(props map[string]interface{}, names ...string) float64 {
	for _, n := range names {
		switch v := props[n].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		}
	}

	return 0
}

// zeroPad left-pads a code to the given width. DANE codes lose leading
// zeros when a file round-trips through numeric columns.
func zeroPad(s string, width int) string {
	if s == "" || len(s) >= width {
		return s
	}

	return strings.Repeat("0", width-len(s)) + s
}

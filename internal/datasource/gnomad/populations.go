package gnomad

// population pairs a gnomAD population id with its human-readable label.
type population struct {
	id    string
	label string
}

// populations is the fixed set of recognized gnomAD populations, in the
// order used to break max-frequency ties. Ids outside this table are ignored
// when merging; no buckets are created dynamically.
var populations = []population{
	{"afr", "African/African American"},
	{"ami", "Amish"},
	{"amr", "Latino/Admixed American"},
	{"asj", "Ashkenazi Jewish"},
	{"eas", "East Asian"},
	{"jpn", "Japanese"},
	{"kor", "Korean"},
	{"oea", "Other East Asian"},
	{"fin", "European (Finnish)"},
	{"mid", "Middle Eastern"},
	{"nfe", "European (non-Finnish)"},
	{"bgr", "Bulgarian"},
	{"est", "Estonian"},
	{"nwe", "North-western European"},
	{"onf", "Other non-Finnish European"},
	{"seu", "Southern European"},
	{"swe", "Swedish"},
	{"oth", "Other"},
	{"sas", "South Asian"},
}

// populationLabel returns the human-readable label for a population id.
func populationLabel(id string) (string, bool) {
	for _, p := range populations {
		if p.id == id {
			return p.label, true
		}
	}
	return "", false
}

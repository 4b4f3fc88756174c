package domain

// Built-in catalogues for the two survey domains. Each group is a base layout
// and the instrument variations seen in the field.

func GPRGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "Schema 1",
			Base: Schema{Name: "Base Schema 1", Columns: []string{
				"Scan", "Dist.(ft)", "MP", "Lat(°)", "Long(°)",
				"Layer 1 Name", "Layer 1 Depth(in)", "Layer 2 Name", "Layer 2 Depth(in)",
			}},
			Variations: []Schema{
				{Name: "Variation 1A", Columns: []string{"User Mark", "Layer 1 2-Way Time", "Layer 2 2-Way Time"}},
				{Name: "Variation 1B", Columns: []string{
					"Time", "Layer 1 Layer Diel.", "Layer 2 Layer Diel.",
					"Layer 3 Name", "Layer 3 Depth(in)", "Layer 3 Layer Diel.",
				}},
			},
		},
	}
}

func PavementGroups() []SchemaGroup {
	return []SchemaGroup{
		{
			Name: "Schema 1",
			Base: Schema{Name: "Base Schema 1", Columns: []string{
				"Lattitude", "Longitude", "Scan",
				"Surface AC Depth (in.)", "PCC Depth (in.)", "Bottom AC Depth (in.)",
				"Surface AC Thickness (in.)", "PCC Thickness (in.)", "Bottom AC Thickness (in.)",
			}},
			Variations: []Schema{
				{Name: "Variation 1A", Columns: []string{"Distance from Start of Ramp (ft)"}},
				{Name: "Variation 1B", Columns: []string{"MP"}},
			},
		},
		{
			Name: "Schema 2",
			Base: Schema{Name: "Base Schema 2", Columns: []string{
				"Lattitude", "Longitude", "Scan", "MP", "AC Depth (in.)", "PCC Depth (in.)",
			}},
			Variations: []Schema{
				{Name: "Variation 2A", Columns: []string{"Base Layer Depth (in.)"}},
				{Name: "Variation 2B", Columns: []string{"Base Layer Depth (in.)", "Base Thickness (in)"}},
			},
		},
		{
			Name: "Schema 3",
			Base: Schema{Name: "Base Schema 3", Columns: []string{
				"Lattitude", "Longitude", "Scan", "MP", "PCC Depth (in.)",
			}},
			Variations: []Schema{
				{Name: "Variation 3A", Columns: []string{"AC Depth (in.)", "AC Thickness (in.)", "Base Layer 2 Depth (in.)"}},
				{Name: "Variation 3B", Columns: []string{"Base Layer 1 Depth (in.)", "Base Layer 2 Depth (in.)"}},
				{Name: "Variation 3C", Columns: []string{
					"AC Layer 1 (in.)", "AC Layer 2 (in.)", "Total Depth AC (in.)",
					"Bottom Base Layer Depth (in.)", "PCC Thickness (in.)",
				}},
			},
		},
		{
			Name: "Schema 4",
			Base: Schema{Name: "Base Schema 4", Columns: []string{
				"Lattitude", "Longitude", "Scan", "PCC Depth (in.)", "Distance from Start of Ramp (ft)",
			}},
			Variations: []Schema{
				{Name: "Variation 4A", Columns: []string{"Base Layer 1 Depth (in.)", "Base Layer 2 Depth (in.)"}},
				{Name: "Variation 4B", Columns: []string{"AC Depth (in.)", "AC Thickness (in.)", "Base Layer 2 Depth (in.)"}},
				{Name: "Variation 4C", Columns: []string{"AC Depth (in.)", "Base Layer Depth (in.)"}},
				{Name: "Variation 4D", Columns: []string{"AC Depth (in.)", "Base Layer Depth (in.)", "AC Thickness (in.)"}},
			},
		},
		{
			Name: "Schema 5",
			Base: Schema{Name: "Base Schema 5", Columns: []string{
				"Lattitude", "Longitude", "Scan", "PCC Depth (in.)", "Distance from Ramp Start (ft)",
			}},
			Variations: []Schema{
				{Name: "Variation 5A", Columns: []string{"Total AC Depth (in.)"}},
			},
		},
		{
			Name: "Schema 6",
			Base: Schema{Name: "Base Schema 6", Columns: []string{"Lattitude", "Longitude", "Scan", "MP"}},
			Variations: []Schema{
				{Name: "Variation 6A", Columns: []string{"Total AC Depth (in.)", "Base Layer Depth (in.)"}},
				{Name: "Variation 6B", Columns: []string{
					"AC Layer 1 (in.)", "AC Layer 2 (in.)", "Total Depth AC (in.)", "Bottom Base Layer Depth (in.)",
				}},
			},
		},
	}
}

// BuiltinGroups returns the composite catalogue for a survey domain.
func BuiltinGroups(surveyDomain string) ([]SchemaGroup, bool) {
	switch surveyDomain {
	case "gpr":
		return GPRGroups(), true
	case "pavement":
		return PavementGroups(), true
	}
	return nil, false
}

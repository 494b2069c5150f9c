package helios

var (
	VentilationLevel = &EnumType{
		Name:    "VentilationLevel",
		Members: []string{"Level0", "Level1", "Level2", "Level3", "Level4"},
	}
	OperatingMode = &EnumType{
		Name:    "OperatingMode",
		Members: []string{"Automatic", "Manual"},
	}
	HeaterType = &EnumType{
		Name:    "HeaterType",
		Members: []string{"None", "Preheater", "Postheater"},
	}
	BypassMode = &EnumType{
		Name:    "BypassMode",
		Members: []string{"Closed", "Open", "Automatic"},
	}
	Language = &EnumType{
		Name:    "Language",
		Members: []string{"German", "English", "French", "Dutch", "Italian", "Spanish"},
	}
	SensorMode = &EnumType{
		Name:    "SensorMode",
		Members: []string{"Off", "Stepped", "Continuous"},
	}
)

package helios

import "fmt"

// Default is the parameter table of the Helios easyControls ventilation units.
var Default = mustRegistry(defaultDescriptors(), defaultAccess())

func mustRegistry(descriptors []Descriptor, access map[string]Access) *Registry {
	r, err := NewRegistry(descriptors, access)
	if err != nil {
		panic(err)
	}
	return r
}

var staticDescriptors = []Descriptor{
	// identity and network
	{Name: "ArticleDescription", Key: "v00000", Size: 31, Count: 20, Kind: KindString},
	{Name: "ReferenceNumber", Key: "v00001", Size: 16, Count: 12, Kind: KindString},
	{Name: "MacAddress", Key: "v00002", Size: 18, Count: 13, Kind: KindString},
	{Name: "Language", Key: "v00003", Size: 1, Count: 5, Kind: KindEnum, Enum: Language},
	{Name: "Date", Key: "v00004", Size: 10, Count: 9, Kind: KindDateTime},
	{Name: "Time", Key: "v00005", Size: 8, Count: 8, Kind: KindTimeSpan},
	{Name: "DaylightSavingTime", Key: "v00006", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "AutomaticDaylightSaving", Key: "v00007", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "TimeZoneOffset", Key: "v00009", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "DhcpEnabled", Key: "v00010", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "IpAddress", Key: "v00011", Size: 15, Count: 12, Kind: KindString},
	{Name: "SubnetMask", Key: "v00012", Size: 15, Count: 12, Kind: KindString},
	{Name: "StandardGateway", Key: "v00013", Size: 15, Count: 12, Kind: KindString},
	{Name: "PrimaryDnsServer", Key: "v00014", Size: 15, Count: 12, Kind: KindString},
	{Name: "SecondaryDnsServer", Key: "v00015", Size: 15, Count: 12, Kind: KindString},
	{Name: "ModbusSlaveId", Key: "v00016", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "HostName", Key: "v00017", Size: 20, Count: 14, Kind: KindString},
	{Name: "ProjectName", Key: "v00020", Size: 20, Count: 14, Kind: KindString},
	{Name: "SerialNumber", Key: "v00023", Size: 16, Count: 12, Kind: KindString},
	{Name: "ProductionCode", Key: "v00024", Size: 16, Count: 12, Kind: KindString},
	{Name: "WebPortalEnabled", Key: "v00025", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "NtpServer", Key: "v00026", Size: 20, Count: 14, Kind: KindString},
	{Name: "NtpEnabled", Key: "v00027", Size: 1, Count: 5, Kind: KindBoolean},

	// party, standby and operating mode
	{Name: "PartyModeDuration", Key: "v00091", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "PartyModeLevel", Key: "v00092", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "PartyModeActive", Key: "v00094", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "PartyModeRemaining", Key: "v00093", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "StandbyModeDuration", Key: "v00096", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "StandbyModeLevel", Key: "v00097", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "StandbyModeActive", Key: "v00099", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "StandbyModeRemaining", Key: "v00098", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "OperatingMode", Key: "v00101", Size: 1, Count: 5, Kind: KindEnum, Enum: OperatingMode},
	{Name: "VentilationLevel", Key: "v00102", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "VentilationPercentage", Key: "v00103", Size: 3, Count: 6, Kind: KindInteger},

	// air temperatures
	{Name: "OutdoorAirTemperature", Key: "v00104", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "SupplyAirTemperature", Key: "v00105", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "ExhaustAirTemperature", Key: "v00106", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "ExtractAirTemperature", Key: "v00107", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "PreheaterAirTemperature", Key: "v00108", Size: 4, Count: 7, Kind: KindDouble},

	// controls
	{Name: "MinimumVentilationLevel", Key: "v00201", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "HumidityControlMode", Key: "v00221", Size: 1, Count: 5, Kind: KindEnum, Enum: SensorMode},
	{Name: "HumidityControlStatus", Key: "v00222", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "HumidityControlTarget", Key: "v00223", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "HumidityStepSize", Key: "v00224", Size: 2, Count: 5, Kind: KindInteger},
	{Name: "HumidityStepTime", Key: "v00225", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "Co2ControlMode", Key: "v00226", Size: 1, Count: 5, Kind: KindEnum, Enum: SensorMode},
	{Name: "Co2ControlStatus", Key: "v00227", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "Co2ControlTarget", Key: "v00228", Size: 4, Count: 6, Kind: KindInteger},
	{Name: "Co2StepSize", Key: "v00229", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "Co2StepTime", Key: "v00230", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "VocControlMode", Key: "v00231", Size: 1, Count: 5, Kind: KindEnum, Enum: SensorMode},
	{Name: "VocControlStatus", Key: "v00232", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "VocControlTarget", Key: "v00233", Size: 4, Count: 6, Kind: KindInteger},
	{Name: "VocStepSize", Key: "v00234", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "VocStepTime", Key: "v00235", Size: 3, Count: 6, Kind: KindInteger},

	// fans
	{Name: "SupplyFanSpeed", Key: "v00348", Size: 4, Count: 6, Kind: KindInteger},
	{Name: "ExhaustFanSpeed", Key: "v00349", Size: 4, Count: 6, Kind: KindInteger},
	{Name: "FanSpeedSetupActive", Key: "v00350", Size: 1, Count: 5, Kind: KindBoolean},

	// weekly program
	{Name: "WeeklyProgramMode", Key: "v00401", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "WeeklyProgramDay", Key: "v00402", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "WeeklyProgramActive", Key: "v00403", Size: 1, Count: 5, Kind: KindBoolean},

	// heaters
	{Name: "PreheaterType", Key: "v00601", Size: 1, Count: 5, Kind: KindEnum, Enum: HeaterType},
	{Name: "PreheaterActive", Key: "v00602", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "PreheaterTemperature", Key: "v00603", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "PreheaterStatus", Key: "v00604", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "PostheaterType", Key: "v00605", Size: 1, Count: 5, Kind: KindEnum, Enum: HeaterType},
	{Name: "PostheaterActive", Key: "v00606", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "PostheaterTemperature", Key: "v00607", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "PostheaterStatus", Key: "v00608", Size: 1, Count: 5, Kind: KindInteger},
	{Name: "PostheaterPower", Key: "v00609", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "PreheaterPower", Key: "v00610", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "FrostProtectionTemperature", Key: "v00611", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "FrostProtectionActive", Key: "v00612", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "HeatRecoveryEfficiency", Key: "v00613", Size: 3, Count: 6, Kind: KindInteger},

	// bypass
	{Name: "BypassMode", Key: "v00701", Size: 1, Count: 5, Kind: KindEnum, Enum: BypassMode},
	{Name: "BypassRoomTemperature", Key: "v00702", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "BypassMinimumOutdoorTemperature", Key: "v00703", Size: 4, Count: 7, Kind: KindDouble},
	{Name: "BypassOpen", Key: "v00704", Size: 1, Count: 5, Kind: KindBoolean},

	// filter, resets and operating hours
	{Name: "FilterChangeInterval", Key: "v01019", Size: 2, Count: 5, Kind: KindInteger},
	{Name: "FilterChangeReminder", Key: "v01020", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "StartReset", Key: "v01031", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "FactoryReset", Key: "v01032", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "FilterRemainingTime", Key: "v01033", Size: 6, Count: 7, Kind: KindInteger},
	{Name: "FilterReset", Key: "v01034", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "OperatingHoursSupplyFan", Key: "v01036", Size: 8, Count: 8, Kind: KindInteger},
	{Name: "OperatingHoursExhaustFan", Key: "v01037", Size: 8, Count: 8, Kind: KindInteger},
	{Name: "OperatingHoursPreheater", Key: "v01038", Size: 8, Count: 8, Kind: KindInteger},
	{Name: "OperatingHoursPostheater", Key: "v01039", Size: 8, Count: 8, Kind: KindInteger},
	{Name: "ExternalContactFunction", Key: "v01050", Size: 2, Count: 5, Kind: KindInteger},
	{Name: "ExternalContactLevel", Key: "v01051", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "ExternalContactActive", Key: "v01052", Size: 1, Count: 5, Kind: KindBoolean},

	// versions and diagnostics
	{Name: "SoftwareVersion", Key: "v01101", Size: 5, Count: 7, Kind: KindString},
	{Name: "HardwareVersion", Key: "v01102", Size: 5, Count: 7, Kind: KindString},
	{Name: "LastErrorCode", Key: "v01120", Size: 4, Count: 6, Kind: KindInteger},
	{Name: "ErrorCount", Key: "v01123", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "WarningCount", Key: "v01124", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "InfoCount", Key: "v01125", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "ErrorFlags", Key: "v01300", Size: 10, Count: 9, Kind: KindInteger},
	{Name: "WarningFlags", Key: "v01301", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "InfoFlags", Key: "v01302", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "StatusFlags", Key: "v01303", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "FilterChangeDue", Key: "v01306", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "GlobalUpdate", Key: "v01401", Size: 1, Count: 5, Kind: KindBoolean},

	// holiday program
	{Name: "HolidayModeActive", Key: "v01501", Size: 1, Count: 5, Kind: KindBoolean},
	{Name: "HolidayStartDate", Key: "v01502", Size: 10, Count: 9, Kind: KindDateTime},
	{Name: "HolidayEndDate", Key: "v01503", Size: 10, Count: 9, Kind: KindDateTime},
	{Name: "HolidayLevel", Key: "v01504", Size: 1, Count: 5, Kind: KindEnum, Enum: VentilationLevel},
	{Name: "HolidayIntervalTime", Key: "v01505", Size: 3, Count: 6, Kind: KindInteger},
	{Name: "HolidayActivationTime", Key: "v01506", Size: 8, Count: 8, Kind: KindTimeSpan},
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// defaultDescriptors expands the repeated sensor, fan and schedule blocks
// behind the static entries.
func defaultDescriptors() []Descriptor {
	out := make([]Descriptor, 0, 200)
	out = append(out, staticDescriptors...)

	for level := 1; level <= 4; level++ {
		base := 300 + (level-1)*2
		out = append(out,
			Descriptor{Name: fmt.Sprintf("SupplyFanLevel%d", level), Key: key(base + 1), Size: 3, Count: 6, Kind: KindInteger},
			Descriptor{Name: fmt.Sprintf("ExhaustFanLevel%d", level), Key: key(base + 2), Size: 3, Count: 6, Kind: KindInteger},
		)
	}

	for i, day := range weekdays {
		out = append(out, Descriptor{
			Name:  "WeeklyProgram" + day,
			Key:   key(901 + i),
			Size:  48,
			Count: 28,
			Kind:  KindString,
		})
	}

	for n := 1; n <= 8; n++ {
		out = append(out,
			Descriptor{Name: fmt.Sprintf("Co2Sensor%d", n), Key: key(110 + n), Size: 4, Count: 6, Kind: KindInteger},
			Descriptor{Name: fmt.Sprintf("HumiditySensor%d", n), Key: key(118 + n), Size: 3, Count: 6, Kind: KindInteger},
			Descriptor{Name: fmt.Sprintf("TemperatureSensor%d", n), Key: key(127 + n), Size: 4, Count: 7, Kind: KindDouble},
			Descriptor{Name: fmt.Sprintf("Co2Sensor%dEnabled", n), Key: key(2019 + n), Size: 1, Count: 5, Kind: KindBoolean},
			Descriptor{Name: fmt.Sprintf("HumiditySensor%dEnabled", n), Key: key(2027 + n), Size: 1, Count: 5, Kind: KindBoolean},
			Descriptor{Name: fmt.Sprintf("TemperatureSensor%dEnabled", n), Key: key(2035 + n), Size: 1, Count: 5, Kind: KindBoolean},
			Descriptor{Name: fmt.Sprintf("Co2Sensor%dName", n), Key: key(2049 + n), Size: 16, Count: 12, Kind: KindString},
			Descriptor{Name: fmt.Sprintf("HumiditySensor%dName", n), Key: key(2057 + n), Size: 16, Count: 12, Kind: KindString},
			Descriptor{Name: fmt.Sprintf("TemperatureSensor%dName", n), Key: key(2065 + n), Size: 16, Count: 12, Kind: KindString},
		)
	}

	return out
}

func key(n int) string {
	return fmt.Sprintf("v%05d", n)
}

// defaultAccess is the read/write allow-list. It is maintained by hand against
// device behaviour, not derived from the descriptors.
func defaultAccess() map[string]Access {
	readOnly := []string{
		"ArticleDescription", "ReferenceNumber", "MacAddress", "ModbusSlaveId",
		"SerialNumber", "ProductionCode",
		"PartyModeRemaining", "StandbyModeRemaining", "VentilationPercentage",
		"OutdoorAirTemperature", "SupplyAirTemperature", "ExhaustAirTemperature",
		"ExtractAirTemperature", "PreheaterAirTemperature",
		"HumidityControlStatus", "Co2ControlStatus", "VocControlStatus",
		"SupplyFanSpeed", "ExhaustFanSpeed",
		"PreheaterStatus", "PostheaterStatus", "PostheaterPower", "PreheaterPower",
		"FrostProtectionActive", "HeatRecoveryEfficiency", "BypassOpen",
		"FilterRemainingTime",
		"OperatingHoursSupplyFan", "OperatingHoursExhaustFan",
		"OperatingHoursPreheater", "OperatingHoursPostheater",
		"ExternalContactActive", "SoftwareVersion", "HardwareVersion",
		"ErrorCount", "WarningCount", "InfoCount",
		"ErrorFlags", "WarningFlags", "InfoFlags", "StatusFlags", "FilterChangeDue",
	}
	writeOnly := []string{
		"StartReset", "FactoryReset", "FilterReset",
	}
	// The device answers these with all-zero frames; they stay registered but
	// are excluded from both lists.
	excluded := []string{
		"LastErrorCode", "GlobalUpdate", "FanSpeedSetupActive",
	}

	access := make(map[string]Access)
	for _, d := range defaultDescriptors() {
		access[d.Name] = AccessReadWrite
	}
	for n := 1; n <= 8; n++ {
		for _, sensor := range []string{"Co2Sensor%d", "HumiditySensor%d", "TemperatureSensor%d"} {
			readOnly = append(readOnly, fmt.Sprintf(sensor, n))
		}
	}
	for _, name := range readOnly {
		access[name] = AccessRead
	}
	for _, name := range writeOnly {
		access[name] = AccessWrite
	}
	for _, name := range excluded {
		delete(access, name)
	}
	return access
}

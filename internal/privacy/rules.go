package privacy

// GetDefaultRules returns the fixed rule set: the standalone categories
// followed by the quasi-identifiers. The two field sets are disjoint.
func GetDefaultRules() []DetectionRule {
	return []DetectionRule{
		{Field: FieldPhone, Category: CategoryPhone, Kind: RuleStandalone, Match: IsPhone, Mask: MaskPhone},
		{Field: FieldAadhar, Category: CategoryAadhar, Kind: RuleStandalone, Match: IsAadhar, Mask: MaskAadhar},
		{Field: FieldPassport, Category: CategoryPassport, Kind: RuleStandalone, Match: IsPassport, Mask: MaskPassport},
		{Field: FieldUPI, Category: CategoryUPI, Kind: RuleStandalone, Match: IsUPI, Mask: MaskUPI},

		{Field: FieldName, Category: CategoryName, Kind: RuleCombinatorial, Mask: MaskName},
		{Field: FieldEmail, Category: CategoryEmail, Kind: RuleCombinatorial, Mask: MaskEmail},
		{Field: FieldAddress, Category: CategoryAddress, Kind: RuleCombinatorial, Mask: MaskAddress},
		{Field: FieldIPAddress, Category: CategoryIPAddress, Kind: RuleCombinatorial, Mask: MaskIP},
		{Field: FieldDeviceID, Category: CategoryDeviceID, Kind: RuleCombinatorial, Mask: MaskDevice},
	}
}

// RecognizedFields returns every field name the rule set inspects
func RecognizedFields() []string {
	rules := GetDefaultRules()
	fields := make([]string, len(rules))
	for i, rule := range rules {
		fields[i] = rule.Field
	}
	return fields
}

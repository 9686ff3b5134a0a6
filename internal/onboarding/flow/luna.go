package flow

import (
	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// FlowLuna is the full tax client onboarding run by the Luna assistant.
const FlowLuna = "luna"

// ToggleLunaPostal mirrors the residential address into the postal address.
const ToggleLunaPostal = "postal_same_as_residential"

// Luna returns the nine-stage client onboarding flow.
func Luna() *Flow {
	hasABN := equals("has_abn", "yes")
	entity := equals("is_sole_trader", "N")
	gstRegistered := equals("gst_registered", "yes")
	usedAccountant := equals("used_accountant_previously", "Y")

	return &Flow{
		Name:           FlowLuna,
		Title:          "Luna Onboarding",
		MissingMessage: "Please fill in all required fields",
		Defaults: models.Record{
			"is_sole_trader":              "Y",
			models.DeductionProfileField: map[string]any{},
		},
		CopyRules: []models.CopyRule{{
			Toggle:  ToggleLunaPostal,
			Default: true,
			Pairs: []models.FieldPair{
				{From: "residential_address_line_1", To: "postal_address_line_1"},
				{From: "residential_address_line_2", To: "postal_address_line_2"},
				{From: "residential_address_location", To: "postal_address_location"},
				{From: "residential_address_state", To: "postal_address_state"},
				{From: "residential_address_postcode", To: "postal_address_postcode"},
			},
		}},
		Prefills: []Prefill{{From: "first_name", To: "casual_name"}},
		Stages: []StageDescriptor{
			{ID: 1, Title: "Welcome"},
			{ID: 2, Title: "Personal Details", Fields: []FieldDescriptor{
				{Name: "title", Label: "Title"},
				{Name: "first_name", Label: "First name", Required: true},
				{Name: "middle_name", Label: "Middle name"},
				{Name: "last_name", Label: "Last name", Required: true},
				{Name: "casual_name", Label: "Preferred name", Required: true},
				{Name: "birth_date", Label: "Date of birth", Required: true},
				{Name: "gender", Label: "Gender", Required: true},
				{Name: "tfn", Label: "Tax File Number", Required: true, Validator: validation.KindTFN},
				{Name: "residential_address_line_1", Label: "Residential address"},
				{Name: "residential_address_line_2", Label: "Residential address line 2"},
				{Name: "residential_address_location", Label: "Suburb"},
				{Name: "residential_address_state", Label: "State"},
				{Name: "residential_address_postcode", Label: "Postcode"},
				{Name: "postal_address_line_1", Label: "Postal address"},
				{Name: "postal_address_line_2", Label: "Postal address line 2"},
				{Name: "postal_address_location", Label: "Postal suburb"},
				{Name: "postal_address_state", Label: "Postal state"},
				{Name: "postal_address_postcode", Label: "Postal postcode"},
			}},
			{ID: 3, Title: "Contact Details", Fields: []FieldDescriptor{
				{Name: "email", Label: "Email", Required: true},
				{Name: "mobile", Label: "Mobile", Required: true},
				{Name: "phone", Label: "Phone"},
			}},
			{ID: 4, Title: "Business Details", Fields: []FieldDescriptor{
				{Name: "has_abn", Label: "Do you have an ABN?", Required: true},
				{Name: "abn", Label: "ABN", Required: true, VisibleWhen: hasABN, Validator: validation.KindABN},
				{Name: "trading_name", Label: "Trading name", VisibleWhen: hasABN},
				{Name: "business_address_line_1", Label: "Business address", VisibleWhen: hasABN},
				{Name: "business_address_location", Label: "Business suburb", VisibleWhen: hasABN},
				{Name: "business_address_state", Label: "Business state", VisibleWhen: hasABN},
				{Name: "business_address_postcode", Label: "Business postcode", VisibleWhen: hasABN},
				{Name: "fdc_start_date", Label: "FDC start date", Required: true},
				{Name: "is_sole_trader", Label: "Sole trader", Required: true},
				{Name: "entity_name", Label: "Entity name", Required: true, VisibleWhen: entity},
				{Name: "acn", Label: "ACN", VisibleWhen: entity},
			}},
			{ID: 5, Title: "GST Registration", SkipWhen: not(hasABN), Fields: []FieldDescriptor{
				{Name: "gst_registered", Label: "Registered for GST", Required: true},
				{Name: "gst_basis", Label: "GST accounting basis", Required: true, VisibleWhen: gstRegistered},
				{Name: "gst_start_date", Label: "GST registration date", Required: true, VisibleWhen: gstRegistered},
			}},
			{ID: 6, Title: "Bank Details", Fields: []FieldDescriptor{
				{Name: "eft_account_name", Label: "Account name", Required: true},
				{Name: "eft_bsb_number", Label: "BSB", Required: true},
				{Name: "eft_account_number", Label: "Account number", Required: true},
			}},
			{ID: 7, Title: "Deductions", Fields: []FieldDescriptor{
				{Name: models.DeductionProfileField, Label: "Deduction profile"},
			}},
			{ID: 8, Title: "Previous Accountant", Fields: []FieldDescriptor{
				{Name: "used_accountant_previously", Label: "Used an accountant previously", Required: true},
				{Name: "prev_accountant_name", Label: "Accountant name", Required: true, VisibleWhen: usedAccountant},
				{Name: "prev_accountant_firm", Label: "Accounting firm", Required: true, VisibleWhen: usedAccountant},
				{Name: "prev_accountant_email", Label: "Accountant email", Required: true, VisibleWhen: usedAccountant},
			}},
			{ID: 9, Title: "ID Verification & Submit", Fields: []FieldDescriptor{
				{Name: "declaration_accepted", Label: "Declaration", Required: true, Accept: true,
					Message: "Please accept the declaration"},
			}},
		},
	}
}

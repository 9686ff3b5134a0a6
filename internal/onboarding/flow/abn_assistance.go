package flow

import (
	"fdctax/internal/onboarding/models"
	"fdctax/internal/validation"
)

// FlowABNAssistance is the ABN registration flow with an optional paid tier.
const FlowABNAssistance = "abn-assistance"

// ABNAssistance returns the nine-stage ABN registration flow. Payment is only
// collected when the client asked for assistance; the last stage is shown
// after submission.
func ABNAssistance() *Flow {
	wantsAssistance := func(r models.Record) bool { return r.Truthy("wantsAssistance") }
	registerGST := equals("registerForGST", "yes")

	return &Flow{
		Name:           FlowABNAssistance,
		Title:          "ABN Registration",
		MissingMessage: "Please fill in all required fields",
		Defaults: models.Record{
			"businessStructure":   "sole_trader",
			"businessLocation":    "home",
			"anzsicCode":          "8710",
			"declarationAccepted": false,
			"paymentComplete":     false,
		},
		PaymentField:          "paymentComplete",
		PaymentReferenceField: "paymentIntentId",
		PaymentRequired:       wantsAssistance,
		Stages: []StageDescriptor{
			{ID: 1, Title: "Welcome", Fields: []FieldDescriptor{
				{Name: "wantsAssistance", Label: "Would you like us to lodge for you?", Required: true,
					Message: "Please select an option"},
			}},
			{ID: 2, Title: "Personal Details", Fields: []FieldDescriptor{
				{Name: "firstName", Label: "First name", Required: true},
				{Name: "lastName", Label: "Last name", Required: true},
				{Name: "dateOfBirth", Label: "Date of birth", Required: true},
				{Name: "tfn", Label: "Tax File Number", Validator: validation.KindTFN},
			}},
			{ID: 3, Title: "Contact Details", Fields: []FieldDescriptor{
				{Name: "email", Label: "Email", Required: true},
				{Name: "mobile", Label: "Mobile", Required: true},
				{Name: "addressLine1", Label: "Address", Required: true},
				{Name: "suburb", Label: "Suburb", Required: true},
				{Name: "state", Label: "State", Required: true},
				{Name: "postcode", Label: "Postcode", Required: true},
			}},
			{ID: 4, Title: "Business Structure", Fields: []FieldDescriptor{
				{Name: "businessStructure", Label: "Business structure", Required: true,
					Message: "Please select a business structure"},
			}},
			{ID: 5, Title: "Business Details", Fields: []FieldDescriptor{
				{Name: "businessStartDate", Label: "Business start date", Required: true,
					Message: "Please enter your business start date"},
				{Name: "tradingName", Label: "Trading name"},
				{Name: "businessLocation", Label: "Business location"},
				{Name: "anzsicCode", Label: "Industry code"},
			}},
			{ID: 6, Title: "GST Registration", Fields: []FieldDescriptor{
				{Name: "registerForGST", Label: "Register for GST", Required: true,
					Message: "Please select a GST option"},
				{Name: "estimatedTurnover", Label: "Estimated turnover", Required: true, VisibleWhen: registerGST,
					Message: "Please fill in GST details"},
				{Name: "gstStartDate", Label: "GST start date", Required: true, VisibleWhen: registerGST,
					Message: "Please fill in GST details"},
				{Name: "gstBasis", Label: "GST basis", VisibleWhen: registerGST},
			}},
			{ID: 7, Title: "Declaration", Fields: []FieldDescriptor{
				{Name: "declarationAccepted", Label: "Declaration", Required: true, Accept: true,
					Message: "Please accept the declaration"},
			}},
			{ID: 8, Title: "Payment", SkipWhen: not(wantsAssistance), Fields: []FieldDescriptor{
				{Name: "paymentComplete", Label: "Payment", Required: true, Accept: true,
					Message: "Please complete payment"},
			}},
			{ID: 9, Title: "Complete", Completion: true},
		},
	}
}

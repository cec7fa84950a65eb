package lecto

type Gender string

const (
	GenderNone   Gender = "none"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Debtor as returned by Lecto. Reports group reminds by the whole value, so
// every field takes part in equality.
type Debtor struct {
	ID               uint64                 `json:"id"`
	DebtorID         string                 `json:"debtor_id"`
	BasicInformation DebtorBasicInformation `json:"basic_information"`
	Email            DebtorEmail            `json:"email"`
	Address          DebtorAddress          `json:"address"`
	PhoneNumber      DebtorPhoneNumber      `json:"phone_number"`
}

type DebtorBasicInformation struct {
	Name      string  `json:"name"`
	NameKana  *string `json:"name_kana"`
	BirthDate *Date   `json:"birth_date"`
	Gender    Gender  `json:"gender"`
}

type DebtorEmail struct {
	Email string `json:"email"`
}

type DebtorAddress struct {
	Address    string  `json:"address"`
	KycDone    bool    `json:"kyc_done"`
	PostalCode *string `json:"postal_code"`
}

type DebtorPhoneNumber struct {
	PhoneNumber  *string `json:"phone_number"`
	MobileNumber *string `json:"mobile_number"`
}

type DebtorRequest struct {
	DebtorID     string `json:"debtor_id"`
	Name         string `json:"name"`
	NameKana     string `json:"name_kana"`
	BirthDate    *Date  `json:"birth_date"`
	Gender       Gender `json:"gender"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	KycDone      bool   `json:"kyc_done"`
	PostalCode   string `json:"postal_code"`
	PhoneNumber  string `json:"phone_number"`
	MobileNumber string `json:"mobile_number"`
}

package provider

import "time"

// Domain is a mailbox domain offered by the provider.
type Domain struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	IsActive  bool      `json:"isActive"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
}

// Account is a provisioned mailbox account.
type Account struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	Quota      int64     `json:"quota"`
	Used       int64     `json:"used"`
	IsDisabled bool      `json:"isDisabled"`
	IsDeleted  bool      `json:"isDeleted"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Token is an issued bearer token together with the account id it belongs to.
type Token struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

// credentials is the request body for account creation and token issuance.
type credentials struct {
	Address  string `json:"address"`
	Password string `json:"password"`
}

// collection is the Hydra/JSON-LD envelope used for list endpoints.
type collection[T any] struct {
	Members    []T `json:"hydra:member"`
	TotalItems int `json:"hydra:totalItems"`
}

// sourceEnvelope wraps the raw message source.
type sourceEnvelope struct {
	ID          string `json:"id"`
	DownloadURL string `json:"downloadUrl"`
	Data        string `json:"data"`
}

// errorResponse covers the error shapes the provider returns: Hydra
// descriptions, RFC 7807 problem details and plain messages.
type errorResponse struct {
	HydraTitle       string `json:"hydra:title"`
	HydraDescription string `json:"hydra:description"`
	Detail           string `json:"detail"`
	Message          string `json:"message"`
}

func (e errorResponse) description() string {
	switch {
	case e.HydraDescription != "":
		return e.HydraDescription
	case e.Detail != "":
		return e.Detail
	case e.Message != "":
		return e.Message
	default:
		return e.HydraTitle
	}
}

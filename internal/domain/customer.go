package domain

import "strings"

// Customer is a shop user as returned by the REST API.
type Customer struct {
	ID           string       `json:"_id"`
	Username     string       `json:"username"`
	Name         string       `json:"name"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	DeliveryInfo DeliveryInfo `json:"deliveryInfo"`
}

// DeliveryInfo is where and to whom orders are shipped.
type DeliveryInfo struct {
	Name    string  `json:"name"`
	Phone   string  `json:"phone"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

// Address stores the administrative unit codes chosen in the cascade.
type Address struct {
	Street   string `json:"street"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	Province string `json:"province"`
}

// Selection returns the cascade selection held by the address.
func (a Address) Selection() AddressSelection {
	return AddressSelection{
		ProvinceCode: a.Province,
		DistrictCode: a.District,
		WardCode:     a.Ward,
	}
}

// String joins the non-empty parts of the address.
func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.Province} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CustomerUpdate is the partial payload sent when a customer is edited.
type CustomerUpdate struct {
	Name         string       `json:"name"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	DeliveryInfo DeliveryInfo `json:"deliveryInfo"`
}

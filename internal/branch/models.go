// Package branch holds the association's reference data: provinces and the
// branch offices that scope card numbering. Rows are created out of band;
// this service only reads them.
package branch

// Province groups branch offices geographically.
type Province struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Branch is a branch office. Code is the short string used verbatim as the
// card-numbering namespace.
type Branch struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	ProvinceID int64  `json:"province_id"`
}

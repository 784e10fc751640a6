package render

import "fmt"

// Variant 是可互换的版式引擎编号，与记录中保存的整数模板选择一致。
type Variant int

const (
	Basic Variant = iota + 1
	Modern
	Professional
	Sidebar
)

// VariantInfo 是模板列表接口返回的元数据。
type VariantInfo struct {
	ID          int    `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ATSFriendly bool   `json:"ats_friendly"`
	ShowsPhoto  bool   `json:"shows_photo"`
}

var variantInfos = []VariantInfo{
	{ID: int(Basic), Key: "basic", Name: "Basic", Description: "Single column, plain typography.", ATSFriendly: true},
	{ID: int(Modern), Key: "modern", Name: "Modern", Description: "Accent banner with photo and skill bars.", ShowsPhoto: true},
	{ID: int(Professional), Key: "professional", Name: "Professional", Description: "Centered header, grouped skills, no imagery.", ATSFriendly: true},
	{ID: int(Sidebar), Key: "sidebar", Name: "Dual Column", Description: "Sidebar with contact details, skills and interests.", ShowsPhoto: true},
}

// ParseVariant 将存储中的整数转换为模板；无法识别时回落到第一个模板。
func ParseVariant(n int) Variant {
	v := Variant(n)
	if v.Valid() {
		return v
	}
	return Basic
}

// Valid 判断模板编号是否已知。
func (v Variant) Valid() bool {
	return v >= Basic && v <= Sidebar
}

func (v Variant) String() string {
	if v.Valid() {
		return variantInfos[v-1].Key
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Info 返回模板元数据。
func (v Variant) Info() VariantInfo {
	return variantInfos[ParseVariant(int(v))-1]
}

// Variants 返回全部模板元数据。
func Variants() []VariantInfo {
	return append([]VariantInfo(nil), variantInfos...)
}

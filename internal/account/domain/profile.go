package domain

// ProfilePatch is a partial profile update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name     *string `validate:"omitnil,min=1,max=128"`
	Mobile   *string `validate:"omitnil,min=1,max=32"`
	Hospital *string `validate:"omitnil,min=1,max=256"`
	Address  *string `validate:"omitnil,min=1,max=512"`
}

// IsEmpty reports whether no field is present.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Mobile == nil && p.Hospital == nil && p.Address == nil
}

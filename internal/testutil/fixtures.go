// Package testutil provides record types and datasets shared by tests.
package testutil

import (
	"fmt"
	"time"

	"github.com/roach88/dynquery/internal/ir"
	"github.com/roach88/dynquery/internal/schema"
)

// StatusValues are the members of the User.Status enum.
var StatusValues = []string{"Pending", "Active", "Closed"}

// UserType is the record type most tests query.
func UserType() schema.RecordType {
	return schema.RecordType{
		Name: "User",
		Fields: []schema.FieldDescriptor{
			{Name: "Id", Type: schema.TypeInt},
			{Name: "Name", Type: schema.TypeString, Nullable: true, Required: true},
			{Name: "Gender", Type: schema.TypeString, Nullable: true},
			{Name: "Code", Type: schema.TypeInt, Nullable: true},
			{Name: "CreatedAt", Type: schema.TypeDateTime},
			{Name: "UpdateAt", Type: schema.TypeDateTime, Nullable: true},
			{Name: "Price", Type: schema.TypeDecimal},
			{Name: "Active", Type: schema.TypeBool},
			{Name: "Status", Type: schema.TypeEnum, EnumValues: StatusValues},
		},
	}
}

// UserViewType is a narrower result shape for projections.
func UserViewType() schema.RecordType {
	return schema.RecordType{
		Name: "UserView",
		Fields: []schema.FieldDescriptor{
			{Name: "Id", Type: schema.TypeInt},
			{Name: "Name", Type: schema.TypeString, Nullable: true},
			{Name: "Gender", Type: schema.TypeString, Nullable: true},
		},
	}
}

// Registry bundles a registry with the fixture types registered in it.
type Registry struct {
	*schema.Registry
	User     *schema.RecordType
	UserView *schema.RecordType
}

// NewRegistry registers UserType and UserViewType in a fresh registry.
func NewRegistry() *Registry {
	reg := schema.NewRegistry()
	return &Registry{
		Registry: reg,
		User:     reg.MustRegister(UserType()),
		UserView: reg.MustRegister(UserViewType()),
	}
}

func day(y int, m time.Month, d int) ir.IRValue {
	return ir.NewIRTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func user(id int64, name, gender string, code ir.IRValue, created, updated ir.IRValue, price int64, active bool) ir.IRObject {
	return ir.IRObject{
		"Id":        ir.IRInt(id),
		"Name":      ir.IRString(name),
		"Gender":    ir.IRString(gender),
		"Code":      code,
		"CreatedAt": created,
		"UpdateAt":  updated,
		"Price":     ir.DecimalFromInt(price),
		"Active":    ir.IRBool(active),
		"Status":    ir.IREnum{Ordinal: id % 3, Name: StatusValues[id%3]},
	}
}

// Users returns ten sample users in Id order. Codes of users 4 and 8 are
// null; UpdateAt of users 2, 5 and 8 is null.
func Users() []ir.IRObject {
	null := ir.IRNull{}
	return []ir.IRObject{
		user(1, "Joao Silva", "M", ir.IRInt(100), day(2023, 1, 15), day(2023, 6, 10), 1, true),
		user(2, "Maria Santos", "F", ir.IRInt(200), day(2023, 2, 20), null, 1, false),
		user(3, "Carlos Oliveira", "M", ir.IRInt(150), day(2023, 3, 10), day(2023, 8, 5), 2, true),
		user(4, "Ana Costa", "F", null, day(2023, 4, 5), day(2023, 9, 12), 2, false),
		user(5, "Pedro Lima", "M", ir.IRInt(300), day(2023, 5, 25), null, 1, true),
		user(6, "Lucia Ferreira", "F", ir.IRInt(250), day(2023, 6, 30), day(2023, 10, 1), 10, true),
		user(7, "Roberto a Alves", "M", ir.IRInt(180), day(2023, 7, 12), day(2023, 11, 15), 10, false),
		user(8, "Fernanda Rocha", "F", null, day(2023, 8, 8), null, 1, true),
		user(9, "Gabriel Mendes", "M", ir.IRInt(220), day(2023, 9, 18), day(2023, 12, 3), 1, true),
		user(10, "Juliana Cruz", "F", ir.IRInt(190), day(2023, 10, 22), day(2023, 12, 20), 1, true),
	}
}

// PairUsers returns the two-record dataset {Ann, Code null} and
// {Bob, Code 5}.
func PairUsers() []ir.IRObject {
	ann := user(1, "Ann", "F", ir.IRNull{}, day(2024, 1, 1), ir.IRNull{}, 1, true)
	bob := user(2, "Bob", "M", ir.IRInt(5), day(2024, 1, 2), ir.IRNull{}, 2, true)
	return []ir.IRObject{ann, bob}
}

// GeneratedUsers returns n users whose Gender and Price repeat in small
// cycles, which makes ties on those fields common.
func GeneratedUsers(n int) []ir.IRObject {
	clock := NewDeterministicClock(time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), 6*time.Hour)
	genders := []string{"F", "M"}
	out := make([]ir.IRObject, n)
	for i := range n {
		id := int64(i + 1)
		var code ir.IRValue = ir.IRInt(id % 7)
		if id%5 == 0 {
			code = ir.IRNull{}
		}
		out[i] = user(id, fmt.Sprintf("User %03d", id), genders[i%2], code,
			ir.NewIRTime(clock.Next()), ir.IRNull{}, id%4, id%2 == 0)
	}
	return out
}

// IDs extracts the Id field of each record, in order.
func IDs(recs []ir.IRObject) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		if id, ok := r["Id"].(ir.IRInt); ok {
			ids[i] = int64(id)
		}
	}
	return ids
}

// Names extracts the Name field of each record, in order.
func Names(recs []ir.IRObject) []string {
	names := make([]string, len(recs))
	for i, r := range recs {
		if name, ok := r["Name"].(ir.IRString); ok {
			names[i] = string(name)
		}
	}
	return names
}

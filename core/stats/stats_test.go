package stats

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
)

func rec(student, group, teacher string, attended bool) attendance.Record {
	return attendance.Record{
		StudentID: student,
		GroupID:   group,
		TeacherID: teacher,
		Date:      civil.Date{Year: 2024, Month: 3, Day: 5},
		Attended:  attended,
	}
}

var records = []attendance.Record{
	rec("s1", "g1", "t1", true),
	rec("s2", "g1", "t1", true),
	rec("s3", "g1", "t1", false),
	rec("s1", "g1", "t2", false),
	rec("s4", "g2", "t2", true),
	rec("s5", "g2", "", false),
}

func TestParseDimension(t *testing.T) {
	for in, want := range map[string]Dimension{"student": DimStudent, " Group ": DimGroup, "TEACHER": DimTeacher} {
		dim, err := ParseDimension(in)
		assert.NoError(t, err)
		assert.Equal(t, want, dim)
	}

	_, err := ParseDimension("room")
	assert.True(t, core.IsValidation(err))
	_, err = ParseDimension("")
	assert.True(t, core.IsValidation(err))
}

func TestRate(t *testing.T) {
	assert.Equal(t, 0.0, Rate(0, 0))
	assert.Equal(t, 0.0, Rate(3, 0))
	assert.Equal(t, 1.0, Rate(4, 4))
	assert.Equal(t, 0.5, Rate(1, 2))
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		dim  Dimension
		want []Statistic
	}{
		{
			dim: DimStudent,
			want: []Statistic{
				{Scope: DimStudent, EntityID: "s2", Total: 1, Present: 1, Rate: 1},
				{Scope: DimStudent, EntityID: "s4", Total: 1, Present: 1, Rate: 1},
				{Scope: DimStudent, EntityID: "s1", Total: 2, Present: 1, Rate: 0.5},
				{Scope: DimStudent, EntityID: "s3", Total: 1, Present: 0, Rate: 0},
				{Scope: DimStudent, EntityID: "s5", Total: 1, Present: 0, Rate: 0},
			},
		},
		{
			dim: DimGroup,
			want: []Statistic{
				{Scope: DimGroup, EntityID: "g1", Total: 4, Present: 2, Rate: 0.5},
				{Scope: DimGroup, EntityID: "g2", Total: 2, Present: 1, Rate: 0.5},
			},
		},
		{
			// records without a teacher are skipped
			dim: DimTeacher,
			want: []Statistic{
				{Scope: DimTeacher, EntityID: "t1", Total: 3, Present: 2, Rate: 2.0 / 3},
				{Scope: DimTeacher, EntityID: "t2", Total: 2, Present: 1, Rate: 0.5},
			},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.dim), func(t *testing.T) {
			got := Aggregate(records, tt.dim)
			assert.Equal(t, tt.want, got)
			for _, stat := range got {
				assert.LessOrEqual(t, stat.Present, stat.Total)
				assert.GreaterOrEqual(t, stat.Rate, 0.0)
				assert.LessOrEqual(t, stat.Rate, 1.0)
			}
		})
	}

	assert.Empty(t, Aggregate(nil, DimStudent))
	assert.NotNil(t, Aggregate(nil, DimStudent))
}

type readerMock struct {
	scope attendance.Scope
	r     core.DateRange
	err   error
}

func (m *readerMock) QueryByDateRange(_ context.Context, scope attendance.Scope, r core.DateRange) ([]attendance.Record, error) {
	m.scope, m.r = scope, r
	if m.err != nil {
		return nil, m.err
	}
	var recs []attendance.Record
	for _, rec := range records {
		if scope.Match(rec) {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	reader := new(readerMock)
	agg := NewAggregator(reader)
	march := core.NewDateRange(civil.Date{Year: 2024, Month: 3, Day: 1}, civil.Date{Year: 2024, Month: 3, Day: 31})

	byGroup, err := agg.ByGroup(ctx, march)
	require.NoError(t, err)
	assert.Len(t, byGroup, 2)
	assert.Equal(t, attendance.All{}, reader.scope)
	assert.Equal(t, march, reader.r)

	byStudent, err := agg.Compute(ctx, DimStudent, attendance.ByTeacher{TeacherID: "t2"}, march)
	require.NoError(t, err)
	assert.Equal(t, []Statistic{
		{Scope: DimStudent, EntityID: "s4", Total: 1, Present: 1, Rate: 1},
		{Scope: DimStudent, EntityID: "s1", Total: 1, Present: 0, Rate: 0},
	}, byStudent)

	byTeacher, err := agg.ByTeacher(ctx, march)
	require.NoError(t, err)
	assert.Len(t, byTeacher, 2)

	t.Run("entity without records", func(t *testing.T) {
		tests := []struct {
			name  string
			dim   Dimension
			scope attendance.Scope
			want  []Statistic
		}{
			{name: "group", dim: DimGroup, scope: attendance.ByGroup{GroupID: "g9"}, want: []Statistic{{Scope: DimGroup, EntityID: "g9"}}},
			{name: "student", dim: DimStudent, scope: attendance.ByStudent{StudentID: "s9"}, want: []Statistic{{Scope: DimStudent, EntityID: "s9"}}},
			{name: "teacher", dim: DimTeacher, scope: attendance.ByTeacher{TeacherID: "t9"}, want: []Statistic{{Scope: DimTeacher, EntityID: "t9"}}},
			{name: "other dimension", dim: DimStudent, scope: attendance.ByGroup{GroupID: "g9"}, want: []Statistic{}},
			{name: "empty entity id", dim: DimGroup, scope: attendance.ByGroup{}, want: []Statistic{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := agg.Compute(ctx, tt.dim, tt.scope, march)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	})

	reader.err = errors.New("boom")
	_, err = agg.ByStudent(ctx, march)
	assert.Error(t, err)
}

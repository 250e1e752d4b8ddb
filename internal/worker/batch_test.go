package worker

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/uscensus/internal/table"
)

// mockFetcher implements BatchFetcher
type mockFetcher struct {
	failOn string
}

func (m *mockFetcher) FetchBatch(ctx context.Context, codes []string) (*table.Table, error) {
	for _, c := range codes {
		if c == m.failOn {
			return nil, errors.New("fetch error")
		}
	}
	t := table.New("codes")
	t.Append(strings.Join(codes, ","))
	return t, nil
}

func TestBatchProcessor_Process(t *testing.T) {
	processor := NewBatchProcessor(&mockFetcher{}, 3)
	batches := [][]string{{"a", "b"}, {"c"}, {"d", "e"}, {"f"}}

	results := processor.Process(context.Background(), batches)
	if len(results) != len(batches) {
		t.Fatalf("expected %d results, got %d", len(batches), len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Fatalf("unexpected error for batch %d: %v", i, res.Error)
		}
		want := strings.Join(batches[i], ",")
		if got := res.Table.String(0, "codes"); got != want {
			t.Errorf("batch %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestBatchProcessor_Process_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockFetcher{failOn: "c"}, 2)

	results := processor.Process(context.Background(), [][]string{{"a"}, {"c"}})
	if results[0].Error != nil {
		t.Errorf("unexpected error for first batch: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for second batch")
	}
}

func TestBatchProcessor_Process_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockFetcher{}, 2)

	if results := processor.Process(context.Background(), nil); len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		size   int
		want   [][]string
	}{
		{"even", []string{"a", "b", "c", "d"}, 2, [][]string{{"a", "b"}, {"c", "d"}}},
		{"remainder", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"single", []string{"a"}, 49, [][]string{{"a"}}},
		{"empty", nil, 49, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Partition(tt.values, tt.size); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Partition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadLinesFromFile(t *testing.T) {
	content := `B17015_001E
# comment
B18104_001E

B17015_001E
   B17015_002E   `

	tmpfile, err := os.CreateTemp("", "codes")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	lines, err := ReadLinesFromFile(tmpfile.Name())
	if err != nil {
		t.Fatalf("ReadLinesFromFile failed: %v", err)
	}

	expected := []string{"B17015_001E", "B18104_001E", "B17015_002E"}
	if !reflect.DeepEqual(lines, expected) {
		t.Errorf("expected %v, got %v", expected, lines)
	}
}

func TestReadLinesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadLinesFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

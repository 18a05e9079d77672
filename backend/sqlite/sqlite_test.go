// Copyright (C) 2023 GrapeBaBa
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrapeBaBa/ibis/backend"
	"github.com/GrapeBaBa/ibis/expr"
	"github.com/GrapeBaBa/ibis/types"
)

func openSeeded(t *testing.T) *Conn {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	_, err = c.DB().Exec(`
		CREATE TABLE scores (
			player  TEXT NOT NULL,
			team    TEXT NOT NULL,
			points  INTEGER NOT NULL
		)`)
	require.NoError(t, err)
	_, err = c.DB().Exec(`
		INSERT INTO scores (player, team, points) VALUES
			('ann',  'red',  10),
			('bob',  'red',  7),
			('cid',  'blue', 3),
			('dee',  'blue', 12)`)
	require.NoError(t, err)
	return c
}

func TestTableCatalog(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	names, err := c.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"scores"}, names)

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	sch := rel.Schema()
	assert.Equal(t, []string{"player", "team", "points"}, sch.Names())

	d, ok := sch.Field("points")
	require.True(t, ok)
	assert.True(t, d.IsInteger())
	assert.False(t, d.Nullable())

	_, err = c.Table(ctx, "missing")
	require.Error(t, err)
}

func TestExecuteFilter(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	tbl := expr.TableOf(rel)
	points, err := tbl.Num("points")
	require.NoError(t, err)

	out, err := tbl.Filter(points.Ge(expr.Int(7)))
	require.NoError(t, err)
	out, err = out.SortBy("player")
	require.NoError(t, err)

	res, err := c.Execute(ctx, out.Op(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"player", "team", "points"}, res.Columns)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "ann", res.Rows[0][0])
	assert.Equal(t, int64(10), res.Rows[0][2])
}

func TestExecuteAggregation(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	tbl := expr.TableOf(rel)
	points, err := tbl.Num("points")
	require.NoError(t, err)

	total, err := points.Sum()
	require.NoError(t, err)
	out, err := tbl.GroupBy("team").Aggregate(map[string]expr.Value{
		"total": total,
	})
	require.NoError(t, err)
	out, err = out.SortBy("team")
	require.NoError(t, err)

	res, err := c.Execute(ctx, out.Op(), nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "blue", res.Rows[0][0])
	assert.Equal(t, int64(15), res.Rows[0][1])
	assert.Equal(t, "red", res.Rows[1][0])
	assert.Equal(t, int64(17), res.Rows[1][1])
}

func TestExecuteBoundParameter(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	tbl := expr.TableOf(rel)
	points, err := tbl.Num("points")
	require.NoError(t, err)

	pv, p, err := expr.Param(types.Int64Type())
	require.NoError(t, err)
	out, err := tbl.Filter(points.Gt(pv.(expr.Num)))
	require.NoError(t, err)

	res, err := c.Execute(ctx, out.Op(), backend.Params{p: int64(9)}, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	// the same graph runs again under a different binding
	res, err = c.Execute(ctx, out.Op(), backend.Params{p: int64(0)}, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 4)

	// unbound parameters fail up front
	_, err = c.Execute(ctx, out.Op(), nil, 0)
	require.Error(t, err)
}

func TestExecuteJoin(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	_, err := c.DB().Exec(`CREATE TABLE teams (team TEXT NOT NULL, city TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = c.DB().Exec(`INSERT INTO teams (team, city) VALUES ('red', 'lisbon'), ('blue', 'porto')`)
	require.NoError(t, err)

	srel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	trel, err := c.Table(ctx, "teams")
	require.NoError(t, err)
	scores, teams := expr.TableOf(srel), expr.TableOf(trel)

	st, err := scores.Str("team")
	require.NoError(t, err)
	tt, err := teams.Str("team")
	require.NoError(t, err)

	out, err := scores.InnerJoin(teams, []expr.Bool{st.Eq(tt)})
	require.NoError(t, err)
	out, err = out.SortBy("player")
	require.NoError(t, err)

	res, err := c.Execute(ctx, out.Op(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"player", "team", "points", "city"}, res.Columns)
	require.Len(t, res.Rows, 4)
	assert.Equal(t, "lisbon", res.Rows[0][3])
}

func TestExecuteRowLimit(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	tbl := expr.TableOf(rel)
	out, err := tbl.SortBy("player")
	require.NoError(t, err)

	res, err := c.Execute(ctx, out.Op(), nil, 2)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "ann", res.Rows[0][0])
}

func TestExecuteDistinctAndCount(t *testing.T) {
	c := openSeeded(t)
	ctx := context.Background()

	rel, err := c.Table(ctx, "scores")
	require.NoError(t, err)
	tbl := expr.TableOf(rel)

	out, err := tbl.Select("team")
	require.NoError(t, err)
	out, err = out.Distinct()
	require.NoError(t, err)
	res, err := c.Execute(ctx, out.Op(), nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	counted, err := tbl.Aggregate(map[string]expr.Value{"n": tbl.Count()})
	require.NoError(t, err)
	res, err = c.Execute(ctx, counted.Op(), nil, 0)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(4), res.Rows[0][0])
}

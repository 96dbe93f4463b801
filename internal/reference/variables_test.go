package reference

import (
	"testing"

	"github.com/shopware/phpsymbols/internal/typestring"
	"github.com/stretchr/testify/assert"
)

func TestVariableTableBranchMerge(t *testing.T) {
	vars := NewVariableTable()

	vars.PushBranch()
	vars.SetVariable("$x", "int")
	vars.PopBranch()

	vars.PushBranch()
	vars.SetVariable("$x", "string")
	vars.PopBranch()

	assert.Equal(t, "", vars.GetType("$x"), "branches are not visible before pruning")

	vars.PruneBranches()
	assert.ElementsMatch(t, []string{"int", "string"}, typestring.Atoms(vars.GetType("$x")))
}

func TestVariableTableBranchKeepsPriorType(t *testing.T) {
	vars := NewVariableTable()
	vars.SetVariable("$x", "null")

	vars.PushBranch()
	vars.SetVariable("$x", "App\\Foo")
	assert.Equal(t, "App\\Foo", vars.GetType("$x"))
	vars.PopBranch()

	vars.PruneBranches()
	assert.ElementsMatch(t, []string{"null", "App\\Foo"}, typestring.Atoms(vars.GetType("$x")))
}

func TestVariableTableNestedBranches(t *testing.T) {
	vars := NewVariableTable()

	vars.PushBranch()
	vars.SetVariable("$y", "int")

	vars.PushBranch()
	assert.Equal(t, "int", vars.GetType("$y"), "outer branch visible from inner branch")
	vars.SetVariable("$y", "float")
	vars.PopBranch()
	vars.PruneBranches()

	assert.ElementsMatch(t, []string{"int", "float"}, typestring.Atoms(vars.GetType("$y")))
	vars.PopBranch()
	vars.PruneBranches()

	assert.ElementsMatch(t, []string{"int", "float"}, typestring.Atoms(vars.GetType("$y")))
}

func TestVariableTableScopes(t *testing.T) {
	vars := NewVariableTable()
	vars.SetVariable("$outer", "App\\Foo")
	vars.SetVariable("$other", "int")

	vars.PushScope()
	assert.Equal(t, "", vars.GetType("$outer"), "scopes do not see enclosing variables")
	vars.SetVariable("$inner", "string")
	vars.PopScope()

	assert.Equal(t, "", vars.GetType("$inner"))
	assert.Equal(t, "App\\Foo", vars.GetType("$outer"))

	vars.PushScope("$outer", "$missing")
	assert.Equal(t, "App\\Foo", vars.GetType("$outer"), "carried variables keep their type")
	assert.Equal(t, "", vars.GetType("$other"))
	assert.Equal(t, []string{"$outer"}, vars.Names())
	vars.PopScope()
}

func TestVariableTablePopScopeClosesBranches(t *testing.T) {
	vars := NewVariableTable()

	vars.PushScope()
	vars.PushBranch()
	vars.SetVariable("$x", "int")
	vars.PopScope()

	assert.Equal(t, "", vars.GetType("$x"))

	vars.SetVariable("$top", "bool")
	assert.Equal(t, "bool", vars.GetType("$top"))
}

func TestVariableTableNames(t *testing.T) {
	vars := NewVariableTable()
	vars.SetVariable("$b", "int")
	vars.SetVariable("$a", "string")

	vars.PushBranch()
	vars.SetVariable("$c", "bool")

	assert.Equal(t, []string{"$a", "$b", "$c"}, vars.Names())

	vars.SetVariable("", "ignored")
	assert.Len(t, vars.Names(), 3)
}

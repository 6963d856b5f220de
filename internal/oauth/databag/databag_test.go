/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package databag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DataBagTestSuite struct {
	suite.Suite
}

func TestDataBagSuite(t *testing.T) {
	suite.Run(t, new(DataBagTestSuite))
}

func (suite *DataBagTestSuite) TestWithDoesNotModifyOriginal() {
	original := New("a", 1)
	updated := original.With("b", 2)

	assert.False(suite.T(), original.Has("b"))
	assert.True(suite.T(), updated.Has("b"))
	assert.Equal(suite.T(), []string{"a", "b"}, updated.Keys())
}

func (suite *DataBagTestSuite) TestWithKeepsPositionOfExistingKey() {
	bag := New("a", 1, "b", 2).With("a", 3)

	assert.Equal(suite.T(), []string{"a", "b"}, bag.Keys())
	v, _ := bag.Get("a")
	assert.Equal(suite.T(), 3, v)
}

func (suite *DataBagTestSuite) TestWithout() {
	bag := New("a", 1, "b", 2, "c", 3)
	trimmed := bag.Without("b")

	assert.Equal(suite.T(), []string{"a", "c"}, trimmed.Keys())
	assert.Equal(suite.T(), 3, bag.Len())
	assert.Equal(suite.T(), bag, bag.Without("missing"))
}

func (suite *DataBagTestSuite) TestMerge() {
	merged := New("a", 1, "b", 2).Merge(New("b", 20, "c", 30))

	assert.Equal(suite.T(), []string{"a", "b", "c"}, merged.Keys())
	v, _ := merged.Get("b")
	assert.Equal(suite.T(), 20, v)
}

func (suite *DataBagTestSuite) TestTypedGetters() {
	bag := New(
		"name", "web",
		"list", []interface{}{"x", "y"},
		"count", float64(42),
		"text", "17",
		"flag", true,
	)

	assert.Equal(suite.T(), "web", bag.GetString("name"))
	assert.Equal(suite.T(), "", bag.GetString("count"))
	assert.Equal(suite.T(), []string{"x", "y"}, bag.GetStringSlice("list"))
	assert.Nil(suite.T(), bag.GetStringSlice("missing"))

	count, ok := bag.GetInt64("count")
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), int64(42), count)
	text, ok := bag.GetInt64("text")
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), int64(17), text)
	_, ok = bag.GetInt64("name")
	assert.False(suite.T(), ok)

	assert.True(suite.T(), bag.GetBool("flag"))
}

func (suite *DataBagTestSuite) TestJSONKeepsOrder() {
	bag := New("z", "last", "a", []string{"1"}, "m", map[string]interface{}{"k": "v"})

	encoded, err := json.Marshal(bag)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), `{"z":"last","a":["1"],"m":{"k":"v"}}`, string(encoded))

	var decoded DataBag
	require.NoError(suite.T(), json.Unmarshal(encoded, &decoded))
	assert.Equal(suite.T(), []string{"z", "a", "m"}, decoded.Keys())
	assert.Equal(suite.T(), []string{"1"}, decoded.GetStringSlice("a"))
}

func (suite *DataBagTestSuite) TestUnmarshalRejectsNonObject() {
	var bag DataBag
	assert.Error(suite.T(), json.Unmarshal([]byte(`["a"]`), &bag))
	require.NoError(suite.T(), json.Unmarshal([]byte(`null`), &bag))
	assert.Equal(suite.T(), 0, bag.Len())
}

func (suite *DataBagTestSuite) TestFromMapIsSorted() {
	bag := FromMap(map[string]interface{}{"b": 1, "a": 2})
	assert.Equal(suite.T(), []string{"a", "b"}, bag.Keys())
	assert.Equal(suite.T(), map[string]interface{}{"a": 2, "b": 1}, bag.ToMap())
}

func (suite *DataBagTestSuite) TestZeroValueIsUsable() {
	var bag DataBag
	assert.False(suite.T(), bag.Has("a"))
	assert.Equal(suite.T(), 1, bag.With("a", 1).Len())
	encoded, err := json.Marshal(bag)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), `{}`, string(encoded))
}

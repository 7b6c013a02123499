package ecs

import (
	"reflect"
	"testing"
)

// 测试组件类型定义
type testBoundsComponent struct {
	Top, Height float64
}

type testProgressComponent struct {
	Value float64
}

func TestCreateEntity(t *testing.T) {
	em := NewEntityManager()
	id1 := em.CreateEntity()
	id2 := em.CreateEntity()

	// 测试实体ID唯一性
	if id1 == id2 {
		t.Error("Entity IDs should be unique")
	}

	// 测试ID从1开始
	if id1 != 1 {
		t.Errorf("First entity ID should be 1, got %d", id1)
	}

	if id2 != 2 {
		t.Errorf("Second entity ID should be 2, got %d", id2)
	}
}

func TestGenericAddAndGetComponent(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()

	AddComponent(em, id, &testBoundsComponent{Top: 100, Height: 200})

	comp, ok := GetComponent[*testBoundsComponent](em, id)
	if !ok {
		t.Fatal("Component should be found")
	}
	if comp.Top != 100 || comp.Height != 200 {
		t.Errorf("Component data mismatch, expected (100, 200), got (%f, %f)", comp.Top, comp.Height)
	}

	// 泛型与反射两套 API 必须看到同一个组件
	raw, found := em.GetComponent(id, reflect.TypeOf(&testBoundsComponent{}))
	if !found || raw.(*testBoundsComponent) != comp {
		t.Error("Reflection lookup should return the same component")
	}

	if _, ok := GetComponent[*testProgressComponent](em, id); ok {
		t.Error("Missing component type should not be found")
	}
}

func TestRemoveComponentGeneric(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()
	AddComponent(em, id, &testProgressComponent{Value: 0.5})

	RemoveComponent[*testProgressComponent](em, id)

	if HasComponent[*testProgressComponent](em, id) {
		t.Error("Component should be removed")
	}
}

func TestDestroyEntity(t *testing.T) {
	em := NewEntityManager()
	id := em.CreateEntity()
	AddComponent(em, id, &testBoundsComponent{})

	// 标记删除
	em.DestroyEntity(id)

	// 清理前实体仍存在
	if !em.Exists(id) {
		t.Error("Entity should still exist before cleanup")
	}

	// 清理后实体消失
	em.RemoveMarkedEntities()
	if em.Exists(id) || HasComponent[*testBoundsComponent](em, id) {
		t.Error("Entity should be removed after cleanup")
	}
}

func TestQueriesFollowRegistrationOrder(t *testing.T) {
	em := NewEntityManager()

	ids := make([]EntityID, 0, 50)
	for i := 0; i < 50; i++ {
		id := em.CreateEntity()
		AddComponent(em, id, &testBoundsComponent{Top: float64(i)})
		if i%2 == 0 {
			AddComponent(em, id, &testProgressComponent{})
		}
		ids = append(ids, id)
	}

	// 删除中间的若干实体，剩余实体的相对顺序不变
	em.DestroyEntity(ids[10])
	em.DestroyEntity(ids[25])
	em.RemoveMarkedEntities()

	for run := 0; run < 5; run++ {
		got := GetEntitiesWith1[*testBoundsComponent](em)
		if len(got) != 48 {
			t.Fatalf("Expected 48 entities, got %d", len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i-1] >= got[i] {
				t.Fatalf("Query result not in registration order at %d: %v", i, got)
			}
		}
	}

	both := em.GetEntitiesWith(reflect.TypeOf(&testBoundsComponent{}), reflect.TypeOf(&testProgressComponent{}))
	if len(both) != 24 { // 25 个偶数实体，其中 ids[10] 已删除
		t.Errorf("Expected 24 entities with both components, got %d", len(both))
	}
}
